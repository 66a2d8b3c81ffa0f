package net

import (
	"testing"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
)

func TestValidate(t *testing.T) {
	tx, _ := fuel.NewTransaction("p", "d", fuel.Gas93, 1, 1)

	cases := []struct {
		name string
		env  *Envelope
		ok   bool
	}{
		{"ping", NewEnvelope(Ping, "p"), true},
		{"no origin", NewEnvelope(Ping, ""), false},
		{"unknown kind", NewEnvelope(Kind(200), "p"), false},
		{"register", NewEnvelope(RegisterTransaction, "p").Set(KeyTransaction, TxVal(tx)), true},
		{"register missing", NewEnvelope(RegisterTransaction, "p"), false},
		{"register mistyped", NewEnvelope(RegisterTransaction, "p").Set(KeyTransaction, StringVal("tx")), false},
		{"register empty", NewEnvelope(RegisterTransaction, "p").Set(KeyTransaction, Value{Kind: TransactionValue}), false},
		{"register zero", NewEnvelope(RegisterTransaction, "p").Set(KeyTransaction, TxVal(fuel.Transaction{})), false},
		{"report with odd entry", NewEnvelope(Report, "d").
			Set(KeyCount, IntVal(1)).
			Set(KeyTotalSales, FloatVal(0)).
			Set(KeyTransactions, TxListVal([]fuel.Transaction{{}})), true},
		{"status int liters", NewEnvelope(PumpStatus, "p").
			Set(KeyBusy, BoolVal(false)).
			Set(KeyTotalFills, IntVal(0)).
			Set(KeyTotalLiters, IntVal(0)), true},
		{"status bad fuel", NewEnvelope(PumpStatus, "p").
			Set(KeyBusy, BoolVal(false)).
			Set(KeyTotalFills, IntVal(0)).
			Set(KeyTotalLiters, FloatVal(0)).
			Set(KeyFuelType, IntVal(1)), false},
		{"confirmation bare", NewEnvelope(PriceConfirmation, "d"), true},
		{"error without reason", NewEnvelope(Error, "p"), false},
	}

	for _, c := range cases {
		err := c.env.Validate()
		if c.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && !common.Is(err, common.Protocol) {
			t.Fatalf("%s: expected Protocol error, got %v", c.name, err)
		}
	}
}
