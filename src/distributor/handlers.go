package distributor

import (
	"errors"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/net"
	"github.com/sirupsen/logrus"
)

/*******************************************************************************
Pumps
*******************************************************************************/

func (d *Distributor) handlePump(p *net.Peer, e *net.Envelope) {
	switch e.Kind {
	case net.RegisterTransaction:
		d.registerTransaction(p, e)
	case net.PumpStatus:
		d.recordStatus(e)
		d.replyPump(p, net.NewEnvelope(net.Ack, d.id).
			To(e.OriginID).
			Set(net.KeyRef, net.StringVal(net.PumpStatus.String())))
	case net.Ping:
		d.replyPump(p, net.NewEnvelope(net.Ack, d.id).
			To(e.OriginID).
			Set(net.KeyRef, net.StringVal(net.Ping.String())))
	case net.Ack:
		ref, _ := e.Payload.String(net.KeyRef)
		d.logger.WithFields(logrus.Fields{"peer": e.OriginID, "ref": ref}).Debug("ACK")
	case net.Error:
		reason, _ := e.Payload.String(net.KeyReason)
		d.logger.WithFields(logrus.Fields{"peer": e.OriginID, "reason": reason}).Warn("Pump reported an error")
	default:
		d.logger.WithFields(logrus.Fields{"peer": e.OriginID, "kind": e.Kind}).Warn("Ignoring unexpected envelope")
	}
}

// registerTransaction persists the transaction, ACKs the pump and buffers the
// transaction when the admin is unreachable. Ledger failures are logged by
// the ledger and do not prevent the ACK.
func (d *Distributor) registerTransaction(p *net.Peer, e *net.Envelope) {
	tx, ok := e.Payload.Transaction(net.KeyTransaction)
	if !ok {
		err := common.NewErr(common.Protocol, "register transaction", e.OriginID, errors.New("missing transaction"))
		d.logger.WithError(err).Warn("Transaction rejected")
		d.replyPump(p, net.NewEnvelope(net.Error, d.id).
			To(e.OriginID).
			Set(net.KeyReason, net.StringVal(err.Error())))
		return
	}

	if tx.DistributorID != d.id {
		d.logger.WithFields(logrus.Fields{
			"id":          tx.ID,
			"distributor": tx.DistributorID,
		}).Warn("Transaction stamped with another distributor id")
	}
	if !tx.Consistent() {
		d.logger.WithField("tx", tx).Warn("Transaction total disagrees with its fields")
	}

	if err := d.ledger.Append(tx); err != nil {
		d.logger.WithField("id", tx.ID).WithError(err).Warn("Transaction only partially persisted")
	}

	d.replyPump(p, net.NewEnvelope(net.Ack, d.id).
		To(e.OriginID).
		Set(net.KeyRef, net.StringVal(tx.ID)))

	if !d.AdminConnected() {
		d.pending.Add(tx)
		d.logger.WithField("pending", d.pending.Len()).Debug("Admin offline, transaction buffered")
	}

	d.logger.WithField("tx", tx).Info("Transaction registered")
}

func (d *Distributor) recordStatus(e *net.Envelope) {
	busy, _ := e.Payload.Bool(net.KeyBusy)
	fills, _ := e.Payload.Int(net.KeyTotalFills)
	liters, _ := e.Payload.Float(net.KeyTotalLiters)
	fuelType, _ := e.Payload.String(net.KeyFuelType)

	d.statusLock.Lock()
	d.statuses[e.OriginID] = PumpStatus{
		ID:          e.OriginID,
		FuelType:    fuelType,
		Busy:        busy,
		TotalFills:  fills,
		TotalLiters: liters,
		UpdatedAt:   time.Now(),
	}
	d.statusLock.Unlock()
}

func (d *Distributor) forgetPump(id string) {
	d.statusLock.Lock()
	delete(d.statuses, id)
	d.statusLock.Unlock()
}

func (d *Distributor) replyPump(p *net.Peer, e *net.Envelope) {
	if err := p.Send(e); err != nil {
		d.logger.WithFields(logrus.Fields{"peer": p.ID(), "kind": e.Kind}).WithError(err).Warn("Reply failed")
	}
}

/*******************************************************************************
Admin
*******************************************************************************/

// onAdminConnect announces the distributor, so the admin registers it before
// its first request, then flushes the pending buffer.
func (d *Distributor) onAdminConnect(reconnect bool) {
	announce := net.NewEnvelope(net.Ping, d.id)
	if reconnect {
		announce = net.NewEnvelope(net.Reconnect, d.id)
	}
	if err := d.sendAdmin(announce); err != nil {
		d.logger.WithError(err).Warn("Could not announce to admin")
	}
	d.FlushPending()
}

func (d *Distributor) handleAdmin(e *net.Envelope) {
	switch e.Kind {
	case net.PriceUpdateBase:
		d.handlePriceUpdateBase(e)
	case net.RequestReport:
		d.sendReport(e)
	case net.Ping:
		if err := d.sendAdmin(net.NewEnvelope(net.Ack, d.id).
			To(e.OriginID).
			Set(net.KeyRef, net.StringVal(net.Ping.String()))); err != nil {
			d.logger.WithError(err).Warn("Reply failed")
		}
	case net.Ack:
		ref, _ := e.Payload.String(net.KeyRef)
		d.logger.WithField("ref", ref).Debug("Admin ACK")
	case net.Error:
		reason, _ := e.Payload.String(net.KeyReason)
		d.logger.WithField("reason", reason).Warn("Admin reported an error")
	default:
		d.logger.WithField("kind", e.Kind).Warn("Ignoring unexpected envelope")
	}
}

// sendReport answers REQUEST_REPORT with a snapshot of the ledger.
func (d *Distributor) sendReport(req *net.Envelope) {
	txs, err := d.ledger.LoadAll()
	if err != nil {
		d.logger.WithError(err).Error("Could not read ledger for report")
		if err := d.sendAdmin(net.NewEnvelope(net.Error, d.id).
			To(req.OriginID).
			Set(net.KeyReason, net.StringVal(err.Error()))); err != nil {
			d.logger.WithError(err).Warn("Reply failed")
		}
		return
	}

	var total float64
	for _, tx := range txs {
		total += tx.Total
	}

	e := net.NewEnvelope(net.Report, d.id).
		To(req.OriginID).
		Set(net.KeyCount, net.IntVal(int64(len(txs)))).
		Set(net.KeyTotalSales, net.FloatVal(total)).
		Set(net.KeyTransactions, net.TxListVal(txs))

	if err := d.sendAdmin(e); err != nil {
		d.logger.WithError(err).Warn("Could not send report")
		return
	}

	d.logger.WithFields(logrus.Fields{
		"count": len(txs),
		"total": total,
	}).Info("Report sent")
}
