package admin

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/config"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/mosaicnetworks/fuelnet/src/history"
	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/sirupsen/logrus"
)

// DistributorReport is the last REPORT received from a distributor.
type DistributorReport struct {
	ID           string
	Count        int64
	TotalSales   float64
	Transactions []fuel.Transaction
	ReceivedAt   time.Time
}

// Admin is the administration node.
type Admin struct {
	conf *config.AdminConfig
	id   string

	serverLock sync.Mutex
	server     *net.Server

	pricesLock sync.RWMutex
	prices     fuel.Prices

	reportsLock   sync.RWMutex
	reports       map[string]DistributorReport
	confirmations map[string]time.Time

	history history.Store

	logger *logrus.Entry
}

// New creates the admin and its history store. With conf.Store the history
// lives in a Badger database under conf.DatabaseDir.
func New(conf *config.AdminConfig) (*Admin, error) {
	logger := conf.Logger().WithField("node", conf.Moniker)

	var store history.Store
	if conf.Store {
		bs, err := history.NewBadgerStore(conf.DatabaseDir, logger)
		if err != nil {
			return nil, err
		}
		store = bs
		logger.WithField("path", conf.DatabaseDir).Debug("Using badger history")
	} else {
		store = history.NewInmemStore()
	}

	return &Admin{
		conf:          conf,
		id:            conf.Moniker,
		prices:        fuel.DefaultPrices(),
		reports:       make(map[string]DistributorReport),
		confirmations: make(map[string]time.Time),
		history:       store,
		logger:        logger,
	}, nil
}

// ID ...
func (a *Admin) ID() string {
	return a.id
}

// Start binds the distributor listener and accepts in the background. A bind
// failure is returned as a Transport error.
func (a *Admin) Start() error {
	a.serverLock.Lock()
	defer a.serverLock.Unlock()

	if a.server != nil {
		return common.NewErr(common.Busy, "start", a.id, errors.New("server already running"))
	}

	stream, err := net.NewTCPStreamLayer(a.conf.BindAddr, a.conf.AdvertiseAddr)
	if err != nil {
		return common.NewErr(common.Transport, "start", a.conf.BindAddr, err)
	}

	a.server = net.NewServer(net.ServerConfig{
		LocalID: a.id,
		Handler: a.handle,
		OnLeave: func(id string) {
			a.logger.WithField("distributor", id).Info("Distributor left")
		},
	}, stream, a.logger)

	go a.server.Listen()

	a.logger.WithField("addr", a.server.Addr()).Info("Listening for distributors")
	return nil
}

// Addr returns the address distributors connect to, or "" before Start.
func (a *Admin) Addr() string {
	s := a.getServer()
	if s == nil {
		return ""
	}
	return s.Addr()
}

// UpdateBasePrices merges prices into the base table and pushes the full
// table to every connected distributor. It returns how many distributors were
// reached. Confirmations of the previous update are discarded.
func (a *Admin) UpdateBasePrices(prices fuel.Prices) int {
	s := a.getServer()
	if s == nil {
		a.logger.WithError(common.NewErr(common.Busy, "update prices", a.id, errors.New("not started"))).Warn("Price update refused")
		return 0
	}

	a.pricesLock.Lock()
	a.prices.Merge(prices)
	table := a.prices.Clone()
	a.pricesLock.Unlock()

	a.reportsLock.Lock()
	a.confirmations = make(map[string]time.Time)
	a.reportsLock.Unlock()

	e := net.NewEnvelope(net.PriceUpdateBase, a.id).
		Set(net.KeyPrices, net.PricesVal(table))

	sent := net.Broadcast(s.Registry().Snapshot(), e, a.logger)
	a.logger.WithFields(logrus.Fields{
		"prices":       table,
		"distributors": sent,
	}).Info("Base prices sent")
	return sent
}

// RequestReports sends REQUEST_REPORT to every connected distributor and
// returns how many were reached.
func (a *Admin) RequestReports() int {
	s := a.getServer()
	if s == nil {
		a.logger.WithError(common.NewErr(common.Busy, "request reports", a.id, errors.New("not started"))).Warn("Report request refused")
		return 0
	}

	sent := net.Broadcast(s.Registry().Snapshot(), net.NewEnvelope(net.RequestReport, a.id), a.logger)
	a.logger.WithField("distributors", sent).Info("Reports requested")
	return sent
}

// BasePrices returns a copy of the base table.
func (a *Admin) BasePrices() fuel.Prices {
	a.pricesLock.RLock()
	defer a.pricesLock.RUnlock()
	return a.prices.Clone()
}

// Distributors returns the ids of the connected distributors, sorted.
func (a *Admin) Distributors() []string {
	s := a.getServer()
	if s == nil {
		return nil
	}
	return s.Registry().IDs()
}

// DistributorCount ...
func (a *Admin) DistributorCount() int {
	return len(a.Distributors())
}

// Report returns the last report of distributor id.
func (a *Admin) Report(id string) (DistributorReport, bool) {
	a.reportsLock.RLock()
	defer a.reportsLock.RUnlock()
	r, ok := a.reports[id]
	return r, ok
}

// Confirmations returns the distributors that confirmed the last price
// update, sorted.
func (a *Admin) Confirmations() []string {
	a.reportsLock.RLock()
	defer a.reportsLock.RUnlock()
	res := make([]string, 0, len(a.confirmations))
	for id := range a.confirmations {
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}

// History returns the transaction history store.
func (a *Admin) History() history.Store {
	return a.history
}

// GetStats returns the node state as a string map for the HTTP service.
func (a *Admin) GetStats() map[string]string {
	res := map[string]string{
		"id":               a.id,
		"addr":             a.Addr(),
		"num_distributors": strconv.Itoa(a.DistributorCount()),
		"confirmations":    strconv.Itoa(len(a.Confirmations())),
		"history":          strconv.Itoa(a.history.Len()),
		"store":            strconv.FormatBool(a.conf.Store),
	}
	for t, p := range a.BasePrices() {
		res["price_"+strings.ToLower(t.String())] = strconv.FormatFloat(p, 'f', 2, 64)
	}
	return res
}

// Close stops the server and closes the history store.
func (a *Admin) Close() error {
	var errs []error
	if s := a.getServer(); s != nil {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.history.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *Admin) getServer() *net.Server {
	a.serverLock.Lock()
	defer a.serverLock.Unlock()
	return a.server
}
