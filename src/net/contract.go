package net

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/fuelnet/src/common"
)

// Well-known payload keys.
const (
	KeyPrices       = "prices"
	KeyCount        = "count"
	KeyTotalSales   = "totalSales"
	KeyTransactions = "transactions"
	KeyTransaction  = "transaction"
	KeyBusy         = "busy"
	KeyTotalFills   = "totalFills"
	KeyTotalLiters  = "totalLiters"
	KeyFuelType     = "fuelType"
	KeyReason       = "reason"
	KeyRef          = "ref"
)

// FieldRule is one entry of a per-kind field contract.
type FieldRule struct {
	Key      string
	Kind     ValueKind
	Required bool
}

var contracts = map[Kind][]FieldRule{
	PriceUpdateBase: {
		{KeyPrices, MapValue, true},
	},
	PriceUpdate: {
		{KeyPrices, MapValue, true},
	},
	Report: {
		{KeyCount, IntValue, true},
		{KeyTotalSales, FloatValue, true},
		{KeyTransactions, TransactionListValue, true},
	},
	SyncTransactions: {
		{KeyCount, IntValue, true},
		{KeyTransactions, TransactionListValue, true},
	},
	PriceConfirmation: {
		{KeyPrices, MapValue, false},
	},
	PumpStatus: {
		{KeyBusy, BoolValue, true},
		{KeyTotalFills, IntValue, true},
		{KeyTotalLiters, FloatValue, true},
		{KeyFuelType, StringValue, false},
	},
	RegisterTransaction: {
		{KeyTransaction, TransactionValue, true},
	},
	Error: {
		{KeyReason, StringValue, true},
	},
	Ack: {
		{KeyRef, StringValue, false},
	},
}

// Contract returns the field contract of kind k.
func Contract(k Kind) []FieldRule {
	return contracts[k]
}

// Validate checks the envelope against the contract of its kind. Float fields
// accept int values. A single transaction must be valid; the entries of a
// transaction list are checked by the receiver, see ParseTransactions.
func (e *Envelope) Validate() error {
	if !e.Kind.Valid() {
		return protocolErr(e, fmt.Errorf("unknown kind %d", e.Kind))
	}
	if e.OriginID == "" {
		return protocolErr(e, errors.New("missing origin id"))
	}
	for _, rule := range contracts[e.Kind] {
		v, ok := e.Payload.Get(rule.Key)
		if !ok {
			if rule.Required {
				return protocolErr(e, fmt.Errorf("missing field %q", rule.Key))
			}
			continue
		}
		if v.Kind != rule.Kind && !(rule.Kind == FloatValue && v.Kind == IntValue) {
			return protocolErr(e, fmt.Errorf("field %q: expected %s, got %s", rule.Key, rule.Kind, v.Kind))
		}
		if v.Kind == TransactionValue {
			if v.Tx == nil {
				return protocolErr(e, fmt.Errorf("field %q: empty transaction", rule.Key))
			}
			if err := v.Tx.Validate(); err != nil {
				return protocolErr(e, fmt.Errorf("field %q: %w", rule.Key, err))
			}
		}
	}
	return nil
}

func protocolErr(e *Envelope, cause error) error {
	return common.NewErr(common.Protocol, "validate "+e.Kind.String(), e.OriginID, cause)
}
