package distributor

import (
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/sirupsen/logrus"
)

// applyBasePrices scales every known entry of base by the utility factor and
// merges the result into the stored table. It returns the full table.
func (d *Distributor) applyBasePrices(base fuel.Prices) fuel.Prices {
	final := base.Scale(d.conf.UtilityFactor)

	d.pricesLock.Lock()
	d.prices.Merge(final)
	table := d.prices.Clone()
	d.pricesLock.Unlock()

	d.logger.WithFields(logrus.Fields{
		"base":  base,
		"final": final,
	}).Info("Base prices applied")

	return table
}

// propagatePrices pushes the full table to every registered pump. Pumps that
// fail the send are dropped by their own receive loop.
func (d *Distributor) propagatePrices(table fuel.Prices) int {
	s := d.getServer()
	if s == nil {
		return 0
	}

	e := net.NewEnvelope(net.PriceUpdate, d.id).
		Set(net.KeyPrices, net.PricesVal(table))

	sent := net.Broadcast(s.Registry().Snapshot(), e, d.logger)
	d.logger.WithField("pumps", sent).Debug("Prices propagated")
	return sent
}

func (d *Distributor) handlePriceUpdateBase(e *net.Envelope) {
	m, _ := e.Payload.Map(net.KeyPrices)
	base, errs := net.ParsePrices(m)
	for _, err := range errs {
		d.logger.WithError(err).Warn("Skipping base price entry")
	}

	table := d.applyBasePrices(base)
	d.propagatePrices(table)

	confirm := net.NewEnvelope(net.PriceConfirmation, d.id).
		To(e.OriginID).
		Set(net.KeyPrices, net.PricesVal(table))
	if err := d.sendAdmin(confirm); err != nil {
		d.logger.WithError(err).Warn("Could not confirm prices")
	}
}
