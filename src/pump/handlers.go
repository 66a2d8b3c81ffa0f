package pump

import (
	"time"

	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/sirupsen/logrus"
)

const busyReason = "pump busy, prices cannot change during a refuel"

func (p *Pump) onConnect(reconnect bool) {
	if err := p.send(p.statusEnvelope()); err != nil {
		p.logger.WithError(err).Warn("Could not announce status")
		return
	}
	p.logger.WithField("reconnect", reconnect).Debug("Announced status")
}

func (p *Pump) handle(e *net.Envelope) {
	p.learnDistributor(e.OriginID)

	switch e.Kind {
	case net.QueryStatus:
		p.reply(p.statusEnvelope().To(e.OriginID))
	case net.PriceUpdate:
		p.handlePriceUpdate(e)
	case net.Ping:
		p.reply(net.NewEnvelope(net.Ack, p.id).
			To(e.OriginID).
			Set(net.KeyRef, net.StringVal(net.Ping.String())))
	case net.Ack:
		ref, _ := e.Payload.String(net.KeyRef)
		p.logger.WithField("ref", ref).Debug("ACK")
	case net.Error:
		reason, _ := e.Payload.String(net.KeyReason)
		p.logger.WithField("reason", reason).Warn("Distributor reported an error")
	default:
		p.logger.WithField("kind", e.Kind).Warn("Ignoring unexpected envelope")
	}
}

func (p *Pump) handlePriceUpdate(e *net.Envelope) {
	if p.Busy() {
		p.logger.Warn("Price update refused, refuel in progress")
		p.reply(net.NewEnvelope(net.Error, p.id).
			To(e.OriginID).
			Set(net.KeyReason, net.StringVal(busyReason)))
		return
	}

	m, _ := e.Payload.Map(net.KeyPrices)
	prices, errs := net.ParsePrices(m)
	for _, err := range errs {
		p.logger.WithError(err).Warn("Skipping price entry")
	}

	p.pricesLock.Lock()
	p.prices.Merge(prices)
	p.pricesLock.Unlock()

	p.logger.WithFields(logrus.Fields{
		"prices": prices,
		"price":  p.price(),
	}).Info("Prices updated")

	p.reply(net.NewEnvelope(net.Ack, p.id).
		To(e.OriginID).
		Set(net.KeyRef, net.StringVal(net.PriceUpdate.String())))
}

func (p *Pump) statusEnvelope() *net.Envelope {
	s := p.Status()
	return net.NewEnvelope(net.PumpStatus, p.id).
		Set(net.KeyBusy, net.BoolVal(s.Busy)).
		Set(net.KeyTotalFills, net.IntVal(s.TotalFills)).
		Set(net.KeyTotalLiters, net.FloatVal(s.TotalLiters)).
		Set(net.KeyFuelType, net.StringVal(s.FuelType.String()))
}

func (p *Pump) reply(e *net.Envelope) {
	if err := p.send(e); err != nil {
		p.logger.WithField("kind", e.Kind).WithError(err).Warn("Reply failed")
	}
}

// learnDistributor adopts origin as distributor id unless one was configured.
func (p *Pump) learnDistributor(origin string) {
	if p.conf.DistributorID != "" || origin == "" {
		return
	}
	p.distLock.Lock()
	defer p.distLock.Unlock()
	if p.distributorID != origin {
		p.distributorID = origin
		p.logger.WithField("distributor", origin).Debug("Distributor id learned")
	}
	select {
	case <-p.learned:
	default:
		close(p.learned)
	}
}

// forgetDistributor drops the learned id when the pump moves to another
// distributor.
func (p *Pump) forgetDistributor() {
	if p.conf.DistributorID != "" {
		return
	}
	p.distLock.Lock()
	defer p.distLock.Unlock()
	p.distributorID = ""
	p.learned = make(chan struct{})
}

// awaitDistributor reports whether the distributor id became known within
// timeout.
func (p *Pump) awaitDistributor(timeout time.Duration) bool {
	p.distLock.RLock()
	learned := p.learned
	p.distLock.RUnlock()

	if timeout <= 0 {
		timeout = net.DefaultDialTimeout
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-learned:
		return true
	case <-t.C:
		return false
	}
}
