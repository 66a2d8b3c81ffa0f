package fuel

import (
	"math"
	"strings"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/vmihailenco/msgpack/v5"
)

// Type is one of the fuels sold by a pump.
type Type uint8

const (
	// Gas93 is 93 octane gasoline.
	Gas93 Type = iota
	// Gas95 is 95 octane gasoline.
	Gas95
	// Gas97 is 97 octane gasoline.
	Gas97
	// Diesel ...
	Diesel
	// Kerosene ...
	Kerosene
)

// Unknown is what an undeclared name decodes to on the wire.
const Unknown Type = math.MaxUint8

// Types lists every fuel type in declaration order.
var Types = []Type{Gas93, Gas95, Gas97, Diesel, Kerosene}

var names = [...]string{"GAS_93", "GAS_95", "GAS_97", "DIESEL", "KEROSENE"}

var displayNames = [...]string{"93", "95", "97", "Diesel", "Kerosene"}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool {
	return int(t) < len(names)
}

// String returns the canonical name used on the wire and in ledger records.
func (t Type) String() string {
	if !t.Valid() {
		return "UNKNOWN"
	}
	return names[t]
}

// DisplayName returns the name shown to operators.
func (t Type) DisplayName() string {
	if !t.Valid() {
		return "Unknown"
	}
	return displayNames[t]
}

// ParseType accepts a canonical name or a display name, case-insensitively.
func ParseType(name string) (Type, error) {
	n := strings.TrimSpace(name)
	for _, t := range Types {
		if strings.EqualFold(n, names[t]) || strings.EqualFold(n, displayNames[t]) {
			return t, nil
		}
	}
	return 0, common.NewErr(common.InvalidFuelType, "parse fuel type", name, nil)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, common.NewErr(common.InvalidFuelType, "marshal fuel type", t.String(), nil)
	}
	return []byte(names[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (t Type) EncodeMsgpack(enc *msgpack.Encoder) error {
	text, err := t.MarshalText()
	if err != nil {
		return err
	}
	return enc.EncodeString(string(text))
}

// DecodeMsgpack implements msgpack.CustomDecoder. An undeclared name decodes
// to Unknown rather than failing, so one bad entry in a transaction list does
// not void its siblings.
func (t *Type) DecodeMsgpack(dec *msgpack.Decoder) error {
	name, err := dec.DecodeString()
	if err != nil {
		return err
	}
	parsed, err := ParseType(name)
	if err != nil {
		*t = Unknown
		return nil
	}
	*t = parsed
	return nil
}
