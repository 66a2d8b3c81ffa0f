package net

import (
	"fmt"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	// IntValue ...
	IntValue ValueKind = iota + 1
	// FloatValue ...
	FloatValue
	// StringValue ...
	StringValue
	// BoolValue ...
	BoolValue
	// TransactionValue is a single embedded Transaction.
	TransactionValue
	// TransactionListValue is a list of Transactions.
	TransactionListValue
	// MapValue is a nested Payload.
	MapValue
)

// String ...
func (k ValueKind) String() string {
	switch k {
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StringValue:
		return "string"
	case BoolValue:
		return "bool"
	case TransactionValue:
		return "transaction"
	case TransactionListValue:
		return "transactions"
	case MapValue:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a tagged union. Only the field matching Kind is meaningful.
type Value struct {
	Kind  ValueKind          `msgpack:"k"`
	Int   int64              `msgpack:"i,omitempty"`
	Float float64            `msgpack:"f,omitempty"`
	Str   string             `msgpack:"s,omitempty"`
	Bool  bool               `msgpack:"b,omitempty"`
	Tx    *fuel.Transaction  `msgpack:"tx,omitempty"`
	Txs   []fuel.Transaction `msgpack:"txs,omitempty"`
	Map   *Payload           `msgpack:"m,omitempty"`
}

// IntVal ...
func IntVal(v int64) Value { return Value{Kind: IntValue, Int: v} }

// FloatVal ...
func FloatVal(v float64) Value { return Value{Kind: FloatValue, Float: v} }

// StringVal ...
func StringVal(v string) Value { return Value{Kind: StringValue, Str: v} }

// BoolVal ...
func BoolVal(v bool) Value { return Value{Kind: BoolValue, Bool: v} }

// TxVal ...
func TxVal(tx fuel.Transaction) Value { return Value{Kind: TransactionValue, Tx: &tx} }

// TxListVal ...
func TxListVal(txs []fuel.Transaction) Value {
	if txs == nil {
		txs = []fuel.Transaction{}
	}
	return Value{Kind: TransactionListValue, Txs: txs}
}

// MapVal ...
func MapVal(p *Payload) Value {
	if p == nil {
		p = &Payload{}
	}
	return Value{Kind: MapValue, Map: p}
}

// Field is one key/value entry of a Payload.
type Field struct {
	Key   string `msgpack:"key"`
	Value Value  `msgpack:"value"`
}

// Payload is an insertion-ordered mapping from string keys to Values. The
// typed getters return ok=false when the key is missing or holds another
// variant; callers treat both the same way.
type Payload struct {
	Fields []Field `msgpack:"fields"`
}

// Set inserts or replaces key, keeping the original position on replace.
func (p *Payload) Set(key string, v Value) *Payload {
	for i := range p.Fields {
		if p.Fields[i].Key == key {
			p.Fields[i].Value = v
			return p
		}
	}
	p.Fields = append(p.Fields, Field{Key: key, Value: v})
	return p
}

// Get ...
func (p *Payload) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	for _, f := range p.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Keys returns the keys in insertion order.
func (p *Payload) Keys() []string {
	keys := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Len ...
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Fields)
}

// Int ...
func (p *Payload) Int(key string) (int64, bool) {
	v, ok := p.Get(key)
	if !ok || v.Kind != IntValue {
		return 0, false
	}
	return v.Int, true
}

// Float also accepts an int entry, widened to float64.
func (p *Payload) Float(key string) (float64, bool) {
	v, ok := p.Get(key)
	if !ok {
		return 0, false
	}
	switch v.Kind {
	case FloatValue:
		return v.Float, true
	case IntValue:
		return float64(v.Int), true
	}
	return 0, false
}

// String ...
func (p *Payload) String(key string) (string, bool) {
	v, ok := p.Get(key)
	if !ok || v.Kind != StringValue {
		return "", false
	}
	return v.Str, true
}

// Bool ...
func (p *Payload) Bool(key string) (bool, bool) {
	v, ok := p.Get(key)
	if !ok || v.Kind != BoolValue {
		return false, false
	}
	return v.Bool, true
}

// Transaction ...
func (p *Payload) Transaction(key string) (fuel.Transaction, bool) {
	v, ok := p.Get(key)
	if !ok || v.Kind != TransactionValue || v.Tx == nil {
		return fuel.Transaction{}, false
	}
	return *v.Tx, true
}

// Transactions ...
func (p *Payload) Transactions(key string) ([]fuel.Transaction, bool) {
	v, ok := p.Get(key)
	if !ok || v.Kind != TransactionListValue {
		return nil, false
	}
	if v.Txs == nil {
		return []fuel.Transaction{}, true
	}
	return v.Txs, true
}

// Map ...
func (p *Payload) Map(key string) (*Payload, bool) {
	v, ok := p.Get(key)
	if !ok || v.Kind != MapValue {
		return nil, false
	}
	if v.Map == nil {
		return &Payload{}, true
	}
	return v.Map, true
}

// PricesVal encodes a price table as a nested mapping keyed by canonical fuel
// name, in fuel declaration order.
func PricesVal(prices fuel.Prices) Value {
	m := &Payload{}
	for _, t := range fuel.Types {
		if v, ok := prices[t]; ok {
			m.Set(t.String(), FloatVal(v))
		}
	}
	return MapVal(m)
}

// ParsePrices decodes a nested price mapping. Entries with an unknown fuel
// name or a non-numeric price are reported in errs and skipped; the others
// are returned.
func ParsePrices(m *Payload) (prices fuel.Prices, errs []error) {
	prices = fuel.Prices{}
	if m == nil {
		return prices, nil
	}
	for _, f := range m.Fields {
		t, err := fuel.ParseType(f.Key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		price, ok := m.Float(f.Key)
		if !ok {
			errs = append(errs, common.NewErr(common.Protocol, "parse prices", f.Key,
				fmt.Errorf("expected number, got %s", f.Value.Kind)))
			continue
		}
		prices[t] = price
	}
	return prices, errs
}

// ParseTransactions returns the valid entries of a transaction list. Invalid
// entries are reported in errs and skipped.
func ParseTransactions(txs []fuel.Transaction) (valid []fuel.Transaction, errs []error) {
	valid = make([]fuel.Transaction, 0, len(txs))
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		valid = append(valid, tx)
	}
	return valid, errs
}
