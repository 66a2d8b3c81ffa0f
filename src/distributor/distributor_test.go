package distributor

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/config"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/mosaicnetworks/fuelnet/src/pump"
)

// stubAdmin records what distributors send it.
type stubAdmin struct {
	srv *net.Server

	lock     sync.Mutex
	received []*net.Envelope
}

func newStubAdmin(t *testing.T, addr string) *stubAdmin {
	stream, err := net.NewTCPStreamLayer(addr, "")
	if err != nil {
		t.Fatal(err)
	}
	a := &stubAdmin{}
	a.srv = net.NewServer(net.ServerConfig{
		LocalID: "admin",
		Handler: func(p *net.Peer, e *net.Envelope) {
			a.lock.Lock()
			a.received = append(a.received, e)
			a.lock.Unlock()
		},
	}, stream, common.NewTestEntry(t, "admin"))
	go a.srv.Listen()
	t.Cleanup(func() { a.srv.Close() })
	return a
}

func (a *stubAdmin) all(kind net.Kind) []*net.Envelope {
	a.lock.Lock()
	defer a.lock.Unlock()
	var res []*net.Envelope
	for _, e := range a.received {
		if e.Kind == kind {
			res = append(res, e)
		}
	}
	return res
}

func (a *stubAdmin) push(t *testing.T, id string, e *net.Envelope) {
	t.Helper()
	peer, ok := a.srv.Registry().Get(id)
	if !ok {
		t.Fatalf("%s not registered", id)
	}
	if err := peer.Send(e); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func newTestDistributor(t *testing.T, id string) *Distributor {
	conf := config.NewDefaultDistributorConfig()
	conf.Config = *config.NewTestConfig(t, id)
	conf.BindAddr = "127.0.0.1:0"
	conf.Reconnect = net.ReconnectPolicy{Interval: 50 * time.Millisecond, MaxAttempts: 40}

	d, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.StartServer(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func newTestPump(t *testing.T, id string, addr string) *pump.Pump {
	conf := config.NewDefaultPumpConfig()
	conf.Config = *config.NewTestConfig(t, id)
	conf.RefuelRate = time.Millisecond
	conf.Reconnect = net.ReconnectPolicy{Interval: 50 * time.Millisecond, MaxAttempts: 3}

	p, err := pump.New(conf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	if !p.Connect(addr) {
		t.Fatalf("%s could not connect", id)
	}
	return p
}

func TestRejectsLowUtilityFactor(t *testing.T) {
	conf := config.NewDefaultDistributorConfig()
	conf.Config = *config.NewTestConfig(t, "dist-1")
	conf.UtilityFactor = 0.9

	if _, err := New(conf); !common.Is(err, common.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestStartServerTwice(t *testing.T) {
	d := newTestDistributor(t, "dist-1")
	if err := d.StartServer(); !common.Is(err, common.Busy) {
		t.Fatalf("second StartServer should be Busy, got %v", err)
	}
}

func TestPriceCascade(t *testing.T) {
	admin := newStubAdmin(t, "127.0.0.1:0")
	d := newTestDistributor(t, "dist-1")

	pumps := []*pump.Pump{
		newTestPump(t, "pump-1", d.Addr()),
		newTestPump(t, "pump-2", d.Addr()),
	}
	waitFor(t, 2*time.Second, "pumps", func() bool { return d.PumpCount() == 2 })

	if !d.ConnectToAdmin(admin.srv.Addr()) {
		t.Fatal("ConnectToAdmin should succeed")
	}

	waitFor(t, time.Second, "admin registration", func() bool { return admin.srv.Registry().Len() == 1 })

	base := &net.Payload{}
	base.Set("GAS_93", net.FloatVal(1000)).Set("NITRO", net.FloatVal(5))
	admin.push(t, "dist-1", net.NewEnvelope(net.PriceUpdateBase, "admin").Set(net.KeyPrices, net.MapVal(base)))

	waitFor(t, 2*time.Second, "confirmation", func() bool { return len(admin.all(net.PriceConfirmation)) == 1 })

	if got := d.Prices()[fuel.Gas93]; got != 1150 {
		t.Fatalf("distributor price should be 1150, got %v", got)
	}
	if got := d.Prices()[fuel.Diesel]; got != 900 {
		t.Fatalf("prices absent from the update should be kept, got %v", got)
	}

	for _, p := range pumps {
		p := p
		waitFor(t, 2*time.Second, p.ID()+" price", func() bool { return p.Prices()[fuel.Gas93] == 1150 })
	}

	conf, _ := admin.all(net.PriceConfirmation)[0].Payload.Map(net.KeyPrices)
	prices, errs := net.ParsePrices(conf)
	if len(errs) != 0 || prices[fuel.Gas93] != 1150 || len(prices) != len(fuel.Types) {
		t.Fatalf("confirmation should carry the full table, got %v %v", prices, errs)
	}
}

func TestTransactionIntakeAndReport(t *testing.T) {
	admin := newStubAdmin(t, "127.0.0.1:0")
	d := newTestDistributor(t, "dist-1")

	if !d.ConnectToAdmin(admin.srv.Addr()) {
		t.Fatal("ConnectToAdmin should succeed")
	}
	waitFor(t, time.Second, "admin registration", func() bool { return admin.srv.Registry().Len() == 1 })

	p := newTestPump(t, "pump-1", d.Addr())
	waitFor(t, time.Second, "distributor id", func() bool { return p.DistributorID() == "dist-1" })

	for _, liters := range []float64{10, 5} {
		if err := p.SubmitRefuel(liters); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, 2*time.Second, "ledger", func() bool { return d.Ledger().Count() == 2 })

	if d.Pending() != 0 {
		t.Fatalf("nothing should be buffered while the admin is connected, got %d", d.Pending())
	}

	admin.push(t, "dist-1", net.NewEnvelope(net.RequestReport, "admin"))
	waitFor(t, 2*time.Second, "report", func() bool { return len(admin.all(net.Report)) == 1 })

	report := admin.all(net.Report)[0]
	count, _ := report.Payload.Int(net.KeyCount)
	total, _ := report.Payload.Float(net.KeyTotalSales)
	txs, _ := report.Payload.Transactions(net.KeyTransactions)
	if count != 2 || len(txs) != 2 {
		t.Fatalf("report should hold 2 transactions, got count=%d len=%d", count, len(txs))
	}
	if total != 15000 {
		t.Fatalf("total sales should be 15000, got %v", total)
	}
	if txs[0].DistributorID != "dist-1" {
		t.Fatalf("pump should stamp the learned distributor id, got %s", txs[0].DistributorID)
	}

	if !d.VerifyIntegrity() {
		t.Fatal("ledger should verify")
	}
}

func TestRejectsEmptyTransaction(t *testing.T) {
	d := newTestDistributor(t, "dist-1")

	conn, err := net.TCPDialer{}.Dial(d.Addr(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	for _, v := range []net.Value{{Kind: net.TransactionValue}, net.TxVal(fuel.Transaction{})} {
		e := net.NewEnvelope(net.RegisterTransaction, "pump-x").Set(net.KeyTransaction, v)
		if err := net.WriteEnvelope(conn, e); err != nil {
			t.Fatal(err)
		}
	}
	if err := net.WriteEnvelope(conn, net.NewEnvelope(net.Ping, "pump-x")); err != nil {
		t.Fatal(err)
	}

	// envelopes of one connection are handled in order, so the ACK comes
	// after both registrations were processed
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply, err := net.ReadEnvelope(bufio.NewReader(conn))
	if err != nil {
		t.Fatal(err)
	}
	if reply.Kind != net.Ack {
		t.Fatalf("expected ACK, got %s", reply.Kind)
	}

	if d.Ledger().Count() != 0 || d.Pending() != 0 {
		t.Fatalf("nothing should be persisted, got count=%d pending=%d", d.Ledger().Count(), d.Pending())
	}
	txs, err := d.Ledger().LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 0 {
		t.Fatalf("ledger should be empty, got %v", txs)
	}
}

func TestOfflineBufferingAndFlush(t *testing.T) {
	d := newTestDistributor(t, "dist-1")

	p := newTestPump(t, "pump-1", d.Addr())
	waitFor(t, time.Second, "pump", func() bool { return d.PumpCount() == 1 })

	if d.ConnectToAdmin("127.0.0.1:1") {
		t.Fatal("ConnectToAdmin to a closed port should fail")
	}

	for i := 0; i < 3; i++ {
		if err := p.SubmitRefuel(2); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, 2*time.Second, "pending", func() bool { return d.Pending() == 3 })

	if err := d.FlushPending(); !common.Is(err, common.NotConnected) {
		t.Fatalf("flush without admin should fail with NotConnected, got %v", err)
	}
	if d.Pending() != 3 {
		t.Fatalf("failed flush should restore the buffer, got %d", d.Pending())
	}

	admin := newStubAdmin(t, "127.0.0.1:0")
	if !d.ConnectToAdmin(admin.srv.Addr()) {
		t.Fatal("ConnectToAdmin should succeed")
	}
	if d.Pending() != 0 {
		t.Fatalf("buffer should be flushed on connect, got %d", d.Pending())
	}

	waitFor(t, 2*time.Second, "sync", func() bool { return len(admin.all(net.SyncTransactions)) == 1 })
	flushed := admin.all(net.SyncTransactions)[0]
	count, _ := flushed.Payload.Int(net.KeyCount)
	txs, _ := flushed.Payload.Transactions(net.KeyTransactions)
	if count != 3 || len(txs) != 3 {
		t.Fatalf("sync should carry 3 transactions, got count=%d len=%d", count, len(txs))
	}
}

func TestReconnectAnnouncesAndFlushes(t *testing.T) {
	first := newStubAdmin(t, "127.0.0.1:0")
	addr := first.srv.Addr()

	d := newTestDistributor(t, "dist-1")
	if !d.ConnectToAdmin(addr) {
		t.Fatal("ConnectToAdmin should succeed")
	}

	first.srv.Close()
	waitFor(t, 2*time.Second, "disconnect", func() bool { return !d.AdminConnected() })

	p := newTestPump(t, "pump-1", d.Addr())
	if err := p.SubmitRefuel(1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, "pending", func() bool { return d.Pending() == 1 })

	second := newStubAdmin(t, addr)
	waitFor(t, 3*time.Second, "reconnect", func() bool { return len(second.all(net.Reconnect)) == 1 })
	waitFor(t, 2*time.Second, "sync", func() bool { return len(second.all(net.SyncTransactions)) == 1 })

	if d.Pending() != 0 {
		t.Fatalf("buffer should be empty after reconnect, got %d", d.Pending())
	}
}

func TestQueryPumps(t *testing.T) {
	d := newTestDistributor(t, "dist-1")
	p := newTestPump(t, "pump-1", d.Addr())
	waitFor(t, time.Second, "pump", func() bool { return len(d.PumpStatuses()) == 1 })

	if err := p.SubmitRefuel(4); err != nil {
		t.Fatal(err)
	}

	if n := d.QueryPumps(); n != 1 {
		t.Fatalf("QueryPumps should reach 1 pump, got %d", n)
	}
	waitFor(t, 2*time.Second, "status update", func() bool {
		st := d.PumpStatuses()
		return len(st) == 1 && st[0].TotalFills == 1
	})

	st := d.PumpStatuses()[0]
	if st.ID != "pump-1" || st.TotalLiters != 4 || st.FuelType != "GAS_93" {
		t.Fatalf("unexpected status %+v", st)
	}

	p.Close()
	waitFor(t, 2*time.Second, "pump removal", func() bool { return len(d.PumpStatuses()) == 0 })
}

func TestStats(t *testing.T) {
	d := newTestDistributor(t, "dist-1")

	stats := d.Stats()
	if !strings.Contains(stats, "dist-1") || !strings.Contains(stats, "primary (OK), backup (OK)") {
		t.Fatalf("unexpected stats:\n%s", stats)
	}

	os.Remove(d.Ledger().BackupPath())
	if !strings.Contains(d.Stats(), "backup (MISSING)") {
		t.Fatalf("missing backup should be reported:\n%s", d.Stats())
	}

	if d.GetStats()["price_gas_93"] != "1000.00" {
		t.Fatalf("unexpected GetStats %v", d.GetStats())
	}
}

func TestReportReadFailure(t *testing.T) {
	admin := newStubAdmin(t, "127.0.0.1:0")
	d := newTestDistributor(t, "dist-1")

	if !d.ConnectToAdmin(admin.srv.Addr()) {
		t.Fatal("ConnectToAdmin should succeed")
	}
	waitFor(t, time.Second, "admin registration", func() bool { return admin.srv.Registry().Len() == 1 })

	// a directory in place of the primary file cannot be read
	if err := os.RemoveAll(d.Ledger().PrimaryPath()); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(d.Ledger().PrimaryPath(), 0o755); err != nil {
		t.Fatal(err)
	}

	admin.push(t, "dist-1", net.NewEnvelope(net.RequestReport, "admin"))
	waitFor(t, 2*time.Second, "error reply", func() bool { return len(admin.all(net.Error)) == 1 })

	if len(admin.all(net.Report)) != 0 {
		t.Fatal("no report should be sent when the ledger cannot be read")
	}
	if reason, ok := admin.all(net.Error)[0].Payload.String(net.KeyReason); !ok || reason == "" {
		t.Fatal("error reply should carry a reason")
	}
}
