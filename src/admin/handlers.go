package admin

import (
	"time"

	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/sirupsen/logrus"
)

func (a *Admin) handle(p *net.Peer, e *net.Envelope) {
	logger := a.logger.WithField("distributor", e.OriginID)

	switch e.Kind {
	case net.Report:
		a.storeReport(e)
	case net.PriceConfirmation:
		a.reportsLock.Lock()
		a.confirmations[e.OriginID] = time.Now()
		a.reportsLock.Unlock()
		logger.Info("Prices confirmed")
	case net.SyncTransactions:
		txs := a.transactions(e)
		added := a.addHistory(txs)
		logger.WithFields(logrus.Fields{
			"received": len(txs),
			"new":      added,
		}).Info("Pending transactions synced")
	case net.Reconnect:
		logger.Info("Distributor reconnected")
	case net.Ping:
		if err := p.Send(net.NewEnvelope(net.Ack, a.id).
			To(e.OriginID).
			Set(net.KeyRef, net.StringVal(net.Ping.String()))); err != nil {
			logger.WithError(err).Warn("Reply failed")
		}
	case net.Ack:
		ref, _ := e.Payload.String(net.KeyRef)
		logger.WithField("ref", ref).Debug("ACK")
	case net.Error:
		reason, _ := e.Payload.String(net.KeyReason)
		logger.WithField("reason", reason).Warn("Distributor reported an error")
	default:
		logger.WithField("kind", e.Kind).Warn("Ignoring unexpected envelope")
	}
}

func (a *Admin) storeReport(e *net.Envelope) {
	count, _ := e.Payload.Int(net.KeyCount)
	total, _ := e.Payload.Float(net.KeyTotalSales)
	txs := a.transactions(e)

	if int(count) != len(txs) {
		a.logger.WithFields(logrus.Fields{
			"distributor": e.OriginID,
			"count":       count,
			"received":    len(txs),
		}).Warn("Report count disagrees with its transactions")
	}

	a.reportsLock.Lock()
	a.reports[e.OriginID] = DistributorReport{
		ID:           e.OriginID,
		Count:        count,
		TotalSales:   total,
		Transactions: txs,
		ReceivedAt:   time.Now(),
	}
	a.reportsLock.Unlock()

	added := a.addHistory(txs)

	a.logger.WithFields(logrus.Fields{
		"distributor": e.OriginID,
		"count":       count,
		"total":       total,
		"new":         added,
	}).Info("Report received")
}

// transactions returns the valid entries of the transaction list of e. The
// others are logged and skipped.
func (a *Admin) transactions(e *net.Envelope) []fuel.Transaction {
	txs, _ := e.Payload.Transactions(net.KeyTransactions)
	valid, errs := net.ParseTransactions(txs)
	for _, err := range errs {
		a.logger.WithField("distributor", e.OriginID).WithError(err).Warn("Skipping transaction")
	}
	return valid
}

// addHistory stores txs and returns how many were not already known.
func (a *Admin) addHistory(txs []fuel.Transaction) int {
	added := 0
	for _, tx := range txs {
		ok, err := a.history.Add(tx)
		if err != nil {
			a.logger.WithField("id", tx.ID).WithError(err).Error("Could not store transaction")
			continue
		}
		if ok {
			added++
		}
	}
	return added
}
