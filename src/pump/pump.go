package pump

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/config"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/sirupsen/logrus"
)

// UnknownDistributor is stamped on transactions until the distributor id is
// known.
const UnknownDistributor = "unknown"

// MaxRefuelLiters bounds a single refuel.
const MaxRefuelLiters = 10000.0

// Status is a snapshot of the pump counters.
type Status struct {
	ID            string
	DistributorID string
	FuelType      fuel.Type
	Price         float64
	Busy          bool
	TotalFills    int64
	TotalLiters   float64
	Session       net.SessionState
}

// Pump is a fuel pump node.
type Pump struct {
	conf     *config.PumpConfig
	id       string
	fuelType fuel.Type

	sessionLock sync.Mutex
	session     *net.Session

	pricesLock sync.RWMutex
	prices     fuel.Prices

	busy int32

	countersLock sync.Mutex
	totalFills   int64
	totalLiters  float64

	distLock      sync.RWMutex
	distributorID string
	learned       chan struct{}

	logger *logrus.Entry
}

// New returns a pump with the default price table. It does not connect.
func New(conf *config.PumpConfig) (*Pump, error) {
	fuelType, err := conf.ParseFuelType()
	if err != nil {
		return nil, err
	}

	p := &Pump{
		conf:          conf,
		id:            conf.Moniker,
		fuelType:      fuelType,
		prices:        fuel.DefaultPrices(),
		distributorID: conf.DistributorID,
		learned:       make(chan struct{}),
		logger:        conf.Logger().WithField("node", conf.Moniker),
	}
	if conf.DistributorID != "" {
		close(p.learned)
	}

	p.logger.WithFields(logrus.Fields{
		"fuel":  fuelType.DisplayName(),
		"price": p.price(),
	}).Debug("Pump created")

	return p, nil
}

// ID ...
func (p *Pump) ID() string {
	return p.id
}

// Connect opens the session to the distributor at addr and reports whether
// the first attempt succeeded. Calling it again with the same address reuses
// the session, which allows a manual retry after the session failed.
//
// Unless a distributor id is configured, Connect then waits up to the dial
// timeout for the distributor's reply to the status announcement, so that
// transactions carry its id.
func (p *Pump) Connect(addr string) bool {
	p.sessionLock.Lock()
	if p.session != nil && p.session.Target() != addr {
		p.session.Close()
		p.session = nil
		p.forgetDistributor()
	}
	if p.session == nil {
		p.session = net.NewSession(net.SessionConfig{
			LocalID:     p.id,
			Target:      addr,
			Policy:      p.conf.Reconnect,
			DialTimeout: p.conf.DialTimeout,
			Handler:     p.handle,
			OnConnect:   p.onConnect,
			OnFailed: func() {
				p.logger.Error("Distributor unreachable, giving up")
			},
		}, p.logger)
	}
	session := p.session
	p.sessionLock.Unlock()

	if err := session.Connect(); err != nil {
		p.logger.WithError(err).Error("Could not connect to distributor")
		return false
	}

	if !p.awaitDistributor(p.conf.DialTimeout) {
		p.logger.Warn("Distributor id not known yet, transactions are stamped " + UnknownDistributor)
	}
	return true
}

// Connected reports whether the distributor session is up.
func (p *Pump) Connected() bool {
	s := p.getSession()
	return s != nil && s.Connected()
}

// SubmitRefuel simulates a refuel of liters, then registers the resulting
// transaction with the distributor. It fails fast with NotConnected when the
// session is down and with Busy when another refuel is in progress. Once
// started, a refuel always runs to completion and is counted, even if the
// registration send fails.
func (p *Pump) SubmitRefuel(liters float64) error {
	if !(liters > 0) || liters > MaxRefuelLiters {
		return common.NewErr(common.InvalidArgument, "refuel", p.id,
			fmt.Errorf("liters must be in (0, %v], got %v", MaxRefuelLiters, liters))
	}
	if !p.Connected() {
		return common.NewErr(common.NotConnected, "refuel", p.id, nil)
	}
	if !atomic.CompareAndSwapInt32(&p.busy, 0, 1) {
		p.logger.Warn("Refuel rejected, pump busy")
		return common.NewErr(common.Busy, "refuel", p.id, errors.New("a refuel is already in progress"))
	}
	defer atomic.StoreInt32(&p.busy, 0)

	price := p.price()
	p.logger.WithFields(logrus.Fields{
		"liters": liters,
		"price":  price,
	}).Info("Refuel started")

	time.Sleep(p.refuelTime(liters))

	tx, err := fuel.NewTransaction(p.id, p.DistributorID(), p.fuelType, liters, price)
	if err != nil {
		return err
	}

	p.countersLock.Lock()
	p.totalFills++
	p.totalLiters += liters
	p.countersLock.Unlock()

	e := net.NewEnvelope(net.RegisterTransaction, p.id).
		To(tx.DistributorID).
		Set(net.KeyTransaction, net.TxVal(tx))

	if err := p.send(e); err != nil {
		p.logger.WithError(err).Error("Could not register transaction")
		return err
	}

	p.logger.WithField("tx", tx).Info("Refuel completed")
	return nil
}

// Busy reports whether a refuel is in progress.
func (p *Pump) Busy() bool {
	return atomic.LoadInt32(&p.busy) == 1
}

// Status ...
func (p *Pump) Status() Status {
	p.countersLock.Lock()
	fills, liters := p.totalFills, p.totalLiters
	p.countersLock.Unlock()

	state := net.Disconnected
	if s := p.getSession(); s != nil {
		state = s.State()
	}

	return Status{
		ID:            p.id,
		DistributorID: p.DistributorID(),
		FuelType:      p.fuelType,
		Price:         p.price(),
		Busy:          p.Busy(),
		TotalFills:    fills,
		TotalLiters:   liters,
		Session:       state,
	}
}

// Prices returns a copy of the cached price table.
func (p *Pump) Prices() fuel.Prices {
	p.pricesLock.RLock()
	defer p.pricesLock.RUnlock()
	return p.prices.Clone()
}

// DistributorID returns the configured distributor id, or the one learned
// from inbound envelopes, or UnknownDistributor.
func (p *Pump) DistributorID() string {
	p.distLock.RLock()
	defer p.distLock.RUnlock()
	if p.distributorID == "" {
		return UnknownDistributor
	}
	return p.distributorID
}

// GetStats returns the status as a string map for the HTTP service.
func (p *Pump) GetStats() map[string]string {
	s := p.Status()
	return map[string]string{
		"id":           s.ID,
		"distributor":  s.DistributorID,
		"fuel_type":    s.FuelType.String(),
		"price":        strconv.FormatFloat(s.Price, 'f', 2, 64),
		"busy":         strconv.FormatBool(s.Busy),
		"total_fills":  strconv.FormatInt(s.TotalFills, 10),
		"total_liters": strconv.FormatFloat(s.TotalLiters, 'f', 2, 64),
		"state":        s.Session.String(),
	}
}

// Close stops the session.
func (p *Pump) Close() error {
	s := p.getSession()
	if s == nil {
		return nil
	}
	return s.Close()
}

func (p *Pump) getSession() *net.Session {
	p.sessionLock.Lock()
	defer p.sessionLock.Unlock()
	return p.session
}

func (p *Pump) send(e *net.Envelope) error {
	s := p.getSession()
	if s == nil {
		return common.NewErr(common.NotConnected, "send "+e.Kind.String(), p.id, nil)
	}
	return s.Send(e)
}

// refuelTime is liters times the refuel rate, clamped to the Duration range.
func (p *Pump) refuelTime(liters float64) time.Duration {
	d := liters * float64(p.conf.RefuelRate)
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

func (p *Pump) price() float64 {
	p.pricesLock.RLock()
	defer p.pricesLock.RUnlock()
	return p.prices[p.fuelType]
}
