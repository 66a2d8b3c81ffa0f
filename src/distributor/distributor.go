package distributor

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/config"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/mosaicnetworks/fuelnet/src/ledger"
	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/sirupsen/logrus"
)

// PumpStatus is the last PUMP_STATUS received from a pump.
type PumpStatus struct {
	ID          string
	FuelType    string
	Busy        bool
	TotalFills  int64
	TotalLiters float64
	UpdatedAt   time.Time
}

// Distributor is a fuel distributor node.
type Distributor struct {
	conf *config.DistributorConfig
	id   string

	ledger  *ledger.Ledger
	pending *ledger.Pending

	serverLock sync.Mutex
	server     *net.Server

	adminLock sync.Mutex
	admin     *net.Session

	pricesLock sync.RWMutex
	prices     fuel.Prices

	statusLock sync.RWMutex
	statuses   map[string]PumpStatus

	flushLock sync.Mutex

	logger *logrus.Entry
}

// New opens the ledger under conf.DataDir. Servers and sessions are started
// separately.
func New(conf *config.DistributorConfig) (*Distributor, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	logger := conf.Logger().WithField("node", conf.Moniker)

	l, err := ledger.Open(conf.DataDir, conf.Moniker, logger)
	if err != nil {
		return nil, err
	}

	return &Distributor{
		conf:     conf,
		id:       conf.Moniker,
		ledger:   l,
		pending:  ledger.NewPending(),
		prices:   fuel.DefaultPrices(),
		statuses: make(map[string]PumpStatus),
		logger:   logger,
	}, nil
}

// ID ...
func (d *Distributor) ID() string {
	return d.id
}

// StartServer binds the pump listener and starts accepting in the
// background. A bind failure is returned as a Transport error.
func (d *Distributor) StartServer() error {
	d.serverLock.Lock()
	defer d.serverLock.Unlock()

	if d.server != nil {
		return common.NewErr(common.Busy, "start server", d.id, errors.New("server already running"))
	}

	stream, err := net.NewTCPStreamLayer(d.conf.BindAddr, d.conf.AdvertiseAddr)
	if err != nil {
		return common.NewErr(common.Transport, "start server", d.conf.BindAddr, err)
	}

	d.server = net.NewServer(net.ServerConfig{
		LocalID: d.id,
		Handler: d.handlePump,
		OnLeave: d.forgetPump,
	}, stream, d.logger)

	go d.server.Listen()

	d.logger.WithField("addr", d.server.Addr()).Info("Listening for pumps")
	return nil
}

// Addr returns the address pumps connect to, or "" before StartServer.
func (d *Distributor) Addr() string {
	s := d.getServer()
	if s == nil {
		return ""
	}
	return s.Addr()
}

// ConnectToAdmin opens the admin session and flushes pending transactions.
// It reports whether the first attempt succeeded; on failure the
// distributor keeps working in local mode.
func (d *Distributor) ConnectToAdmin(addr string) bool {
	d.adminLock.Lock()
	if d.admin != nil && d.admin.Target() != addr {
		d.admin.Close()
		d.admin = nil
	}
	if d.admin == nil {
		d.admin = net.NewSession(net.SessionConfig{
			LocalID:     d.id,
			Target:      addr,
			Policy:      d.conf.Reconnect,
			DialTimeout: d.conf.DialTimeout,
			Handler:     d.handleAdmin,
			OnConnect:   d.onAdminConnect,
			OnFailed: func() {
				d.logger.Warn("Admin unreachable, working in local mode")
			},
		}, d.logger)
	}
	session := d.admin
	d.adminLock.Unlock()

	if err := session.Connect(); err != nil {
		d.logger.WithError(err).Warn("Could not connect to admin, working in local mode")
		return false
	}
	return true
}

// AdminConnected reports whether the admin session is up.
func (d *Distributor) AdminConnected() bool {
	s := d.getAdmin()
	return s != nil && s.Connected()
}

// FlushPending sends the pending buffer to the admin as one
// SYNC_TRANSACTIONS envelope. On failure the transactions go back into the
// buffer.
func (d *Distributor) FlushPending() error {
	d.flushLock.Lock()
	defer d.flushLock.Unlock()

	txs := d.pending.Drain()
	if len(txs) == 0 {
		return nil
	}

	e := net.NewEnvelope(net.SyncTransactions, d.id).
		Set(net.KeyCount, net.IntVal(int64(len(txs)))).
		Set(net.KeyTransactions, net.TxListVal(txs))

	if err := d.sendAdmin(e); err != nil {
		d.pending.Restore(txs)
		d.logger.WithField("pending", len(txs)).WithError(err).Warn("Pending flush failed")
		return err
	}

	d.logger.WithField("count", len(txs)).Info("Pending transactions synced")
	return nil
}

// Prices returns a copy of the current final price table.
func (d *Distributor) Prices() fuel.Prices {
	d.pricesLock.RLock()
	defer d.pricesLock.RUnlock()
	return d.prices.Clone()
}

// UtilityFactor ...
func (d *Distributor) UtilityFactor() float64 {
	return d.conf.UtilityFactor
}

// PumpCount returns the number of registered pumps.
func (d *Distributor) PumpCount() int {
	s := d.getServer()
	if s == nil {
		return 0
	}
	return s.Registry().Len()
}

// QueryPumps sends QUERY_STATUS to every registered pump and returns how
// many sends succeeded. Replies update PumpStatuses.
func (d *Distributor) QueryPumps() int {
	s := d.getServer()
	if s == nil {
		return 0
	}
	return net.Broadcast(s.Registry().Snapshot(), net.NewEnvelope(net.QueryStatus, d.id), d.logger)
}

// PumpStatuses returns the last known status of each connected pump, sorted
// by id.
func (d *Distributor) PumpStatuses() []PumpStatus {
	d.statusLock.RLock()
	defer d.statusLock.RUnlock()

	res := make([]PumpStatus, 0, len(d.statuses))
	for _, s := range d.statuses {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Pending returns the number of transactions waiting for the admin.
func (d *Distributor) Pending() int {
	return d.pending.Len()
}

// Ledger ...
func (d *Distributor) Ledger() *ledger.Ledger {
	return d.ledger
}

// VerifyIntegrity compares the two ledger files.
func (d *Distributor) VerifyIntegrity() bool {
	return d.ledger.VerifyIntegrity()
}

// Stats describes the ledger state in a few lines of text.
func (d *Distributor) Stats() string {
	st := d.ledger.Stats()
	fileState := func(ok bool) string {
		if ok {
			return "OK"
		}
		return "MISSING"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ledger stats for %s:\n", d.id)
	fmt.Fprintf(&b, "Registered transactions: %d\n", st.Records)
	fmt.Fprintf(&b, "Files: primary (%s), backup (%s)\n", fileState(st.PrimaryExists), fileState(st.BackupExists))
	fmt.Fprintf(&b, "Pending sync: %d", d.pending.Len())
	return b.String()
}

// GetStats returns the node state as a string map for the HTTP service.
func (d *Distributor) GetStats() map[string]string {
	st := d.ledger.Stats()

	adminState := net.Disconnected
	if s := d.getAdmin(); s != nil {
		adminState = s.State()
	}

	res := map[string]string{
		"id":             d.id,
		"addr":           d.Addr(),
		"utility_factor": strconv.FormatFloat(d.conf.UtilityFactor, 'f', 2, 64),
		"num_pumps":      strconv.Itoa(d.PumpCount()),
		"admin_state":    adminState.String(),
		"transactions":   strconv.FormatInt(st.Records, 10),
		"pending":        strconv.Itoa(d.pending.Len()),
	}
	for t, p := range d.Prices() {
		res["price_"+strings.ToLower(t.String())] = strconv.FormatFloat(p, 'f', 2, 64)
	}
	return res
}

// Close stops the admin session and the pump server.
func (d *Distributor) Close() error {
	var errs []error

	if s := d.getAdmin(); s != nil {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if s := d.getServer(); s != nil {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (d *Distributor) getServer() *net.Server {
	d.serverLock.Lock()
	defer d.serverLock.Unlock()
	return d.server
}

func (d *Distributor) getAdmin() *net.Session {
	d.adminLock.Lock()
	defer d.adminLock.Unlock()
	return d.admin
}

func (d *Distributor) sendAdmin(e *net.Envelope) error {
	s := d.getAdmin()
	if s == nil {
		return common.NewErr(common.NotConnected, "send "+e.Kind.String(), "admin", nil)
	}
	return s.Send(e)
}
