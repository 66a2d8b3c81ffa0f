package admin

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/config"
	"github.com/mosaicnetworks/fuelnet/src/distributor"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/mosaicnetworks/fuelnet/src/pump"
)

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

func newTestAdmin(t *testing.T, store bool) *Admin {
	conf := config.NewDefaultAdminConfig()
	conf.Config = *config.NewTestConfig(t, "admin")
	conf.BindAddr = "127.0.0.1:0"
	conf.Store = store
	conf.DatabaseDir = filepath.Join(conf.DataDir, config.DefaultBadgerFile)

	a, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func newTestDistributor(t *testing.T, id string, factor float64) *distributor.Distributor {
	conf := config.NewDefaultDistributorConfig()
	conf.Config = *config.NewTestConfig(t, id)
	conf.BindAddr = "127.0.0.1:0"
	conf.UtilityFactor = factor
	conf.Reconnect = net.ReconnectPolicy{Interval: 50 * time.Millisecond, MaxAttempts: 3}

	d, err := distributor.New(conf)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.StartServer(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func newTestPump(t *testing.T, id string, fuelType string, d *distributor.Distributor) *pump.Pump {
	conf := config.NewDefaultPumpConfig()
	conf.Config = *config.NewTestConfig(t, id)
	conf.FuelType = fuelType
	conf.RefuelRate = time.Millisecond
	conf.Reconnect = net.ReconnectPolicy{Interval: 50 * time.Millisecond, MaxAttempts: 3}

	p, err := pump.New(conf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	if !p.Connect(d.Addr()) {
		t.Fatalf("%s could not connect", id)
	}
	waitFor(t, 2*time.Second, id+" distributor id", func() bool { return p.DistributorID() == d.ID() })
	return p
}

func TestNotStarted(t *testing.T) {
	conf := config.NewDefaultAdminConfig()
	conf.Config = *config.NewTestConfig(t, "admin")

	a, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if n := a.UpdateBasePrices(fuel.Prices{fuel.Gas93: 2000}); n != 0 {
		t.Fatalf("UpdateBasePrices before Start should reach nobody, got %d", n)
	}
	if n := a.RequestReports(); n != 0 {
		t.Fatalf("RequestReports before Start should reach nobody, got %d", n)
	}
}

func TestPriceUpdateAndReports(t *testing.T) {
	a := newTestAdmin(t, false)

	d1 := newTestDistributor(t, "dist-1", 1.15)
	d2 := newTestDistributor(t, "dist-2", 1.2)
	p1 := newTestPump(t, "pump-1", "GAS_93", d1)
	p2 := newTestPump(t, "pump-2", "DIESEL", d2)

	for _, d := range []*distributor.Distributor{d1, d2} {
		if !d.ConnectToAdmin(a.Addr()) {
			t.Fatalf("%s could not connect to admin", d.ID())
		}
	}
	waitFor(t, 2*time.Second, "distributors", func() bool { return a.DistributorCount() == 2 })

	if n := a.UpdateBasePrices(fuel.Prices{fuel.Gas93: 1000, fuel.Diesel: 1000}); n != 2 {
		t.Fatalf("UpdateBasePrices should reach 2 distributors, got %d", n)
	}
	waitFor(t, 2*time.Second, "confirmations", func() bool { return len(a.Confirmations()) == 2 })

	waitFor(t, 2*time.Second, "pump-1 price", func() bool { return p1.Prices()[fuel.Gas93] == 1150 })
	waitFor(t, 2*time.Second, "pump-2 price", func() bool { return p2.Prices()[fuel.Diesel] == 1200 })

	if a.BasePrices()[fuel.Gas97] != 1200 {
		t.Fatal("untouched base prices should keep their defaults")
	}

	if err := p1.SubmitRefuel(10); err != nil {
		t.Fatal(err)
	}
	if err := p2.SubmitRefuel(2); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, "ledgers", func() bool {
		return d1.Ledger().Count() == 1 && d2.Ledger().Count() == 1
	})

	if n := a.RequestReports(); n != 2 {
		t.Fatalf("RequestReports should reach 2 distributors, got %d", n)
	}
	waitFor(t, 2*time.Second, "reports", func() bool {
		_, ok1 := a.Report("dist-1")
		_, ok2 := a.Report("dist-2")
		return ok1 && ok2
	})

	r, _ := a.Report("dist-1")
	if r.Count != 1 || r.TotalSales != 11500 {
		t.Fatalf("unexpected dist-1 report %+v", r)
	}

	report := a.GenerateConsolidatedReport()
	for _, want := range []string{
		"Connected distributors: 2",
		"Distributor: dist-1",
		"Total transactions: 2",
		"Total sales: $13900.00",
		"93: $11500.00",
		"Diesel: $2400.00",
		"Transaction history: 2",
	} {
		if !strings.Contains(report, want) {
			t.Fatalf("report should contain %q:\n%s", want, report)
		}
	}
	if strings.Contains(report, "Kerosene") {
		t.Fatalf("fuel types without sales should be omitted:\n%s", report)
	}

	// a second round of reports does not duplicate history
	first, _ := a.Report("dist-2")
	a.RequestReports()
	waitFor(t, 2*time.Second, "second reports", func() bool {
		r, _ := a.Report("dist-2")
		return r.ReceivedAt.After(first.ReceivedAt)
	})
	if a.History().Len() != 2 {
		t.Fatalf("history should hold 2 transactions, got %d", a.History().Len())
	}
}

func TestSyncIntoBadgerHistory(t *testing.T) {
	a := newTestAdmin(t, true)

	d := newTestDistributor(t, "dist-1", 1.15)
	p := newTestPump(t, "pump-1", "GAS_95", d)

	for i := 0; i < 2; i++ {
		if err := p.SubmitRefuel(3); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, 2*time.Second, "pending", func() bool { return d.Pending() == 2 })

	if !d.ConnectToAdmin(a.Addr()) {
		t.Fatal("ConnectToAdmin should succeed")
	}
	waitFor(t, 2*time.Second, "history", func() bool { return a.History().Len() == 2 })

	txs, err := a.History().All()
	if err != nil {
		t.Fatal(err)
	}
	for _, tx := range txs {
		if tx.FuelType != fuel.Gas95 || tx.Total != 3*1100 {
			t.Fatalf("unexpected transaction %v", tx)
		}
	}
	if a.GetStats()["history"] != "2" {
		t.Fatalf("unexpected GetStats %v", a.GetStats())
	}
}

func TestSyncSkipsInvalidTransactions(t *testing.T) {
	a := newTestAdmin(t, false)

	s := net.NewSession(net.SessionConfig{
		LocalID: "dist-x",
		Target:  a.Addr(),
		Policy:  net.ReconnectPolicy{Interval: 50 * time.Millisecond, MaxAttempts: 1},
	}, common.NewTestEntry(t, "dist-x"))
	defer s.Close()
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}

	first, _ := fuel.NewTransaction("pump-1", "dist-x", fuel.Diesel, 2, 900)
	second, _ := fuel.NewTransaction("pump-1", "dist-x", fuel.Diesel, 3, 900)
	odd := first
	odd.ID = ""

	for _, txs := range [][]fuel.Transaction{{first, odd}, {second}} {
		e := net.NewEnvelope(net.SyncTransactions, "dist-x").
			Set(net.KeyCount, net.IntVal(int64(len(txs)))).
			Set(net.KeyTransactions, net.TxListVal(txs))
		if err := s.Send(e); err != nil {
			t.Fatal(err)
		}
	}

	// envelopes of one peer are handled in order
	waitFor(t, 2*time.Second, "history", func() bool { return a.History().Len() >= 2 })

	txs, err := a.History().All()
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 || txs[0].ID != first.ID || txs[1].ID != second.ID {
		t.Fatalf("only valid transactions should be kept, got %v", txs)
	}
}
