package fuel

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/mosaicnetworks/fuelnet/src/common"
)

func TestNewTransactionTotal(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		liters := r.Float64()*200 + 0.001
		price := r.Float64()*2000 + 0.001

		tx, err := NewTransaction("pump-1", "DIST-001", Diesel, liters, price)
		if err != nil {
			t.Fatal(err)
		}
		if tx.Total != liters*price {
			t.Fatalf("total %v != %v * %v", tx.Total, liters, price)
		}
		if !tx.Consistent() {
			t.Fatalf("fresh transaction should be consistent")
		}
	}
}

func TestNewTransactionRejects(t *testing.T) {
	if _, err := NewTransaction("p", "d", Gas93, 0, 1000); !common.Is(err, common.InvalidArgument) {
		t.Fatalf("zero liters: expected InvalidArgument, got %v", err)
	}
	if _, err := NewTransaction("p", "d", Gas93, 10, -1); !common.Is(err, common.InvalidArgument) {
		t.Fatalf("negative price: expected InvalidArgument, got %v", err)
	}
	if _, err := NewTransaction("p", "d", Type(9), 10, 1); !common.Is(err, common.InvalidFuelType) {
		t.Fatalf("bad fuel: expected InvalidFuelType, got %v", err)
	}
}

func TestUniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tx, _ := NewTransaction("p", "d", Gas95, 1, 1)
		if seen[tx.ID] {
			t.Fatalf("duplicate id %s", tx.ID)
		}
		seen[tx.ID] = true
	}
}

func TestRecordRoundTrip(t *testing.T) {
	tx, err := NewTransaction("pump-7", "DIST-002", Gas97, 12.345, 1379.99)
	if err != nil {
		t.Fatal(err)
	}

	line := tx.Record()
	if n := len(strings.Split(line, RecordSeparator)); n != RecordFields {
		t.Fatalf("expected %d fields, got %d", RecordFields, n)
	}

	back, err := ParseRecord(line)
	if err != nil {
		t.Fatal(err)
	}
	if back.ID != tx.ID ||
		back.ClientID != tx.ClientID ||
		back.DistributorID != tx.DistributorID ||
		back.FuelType != tx.FuelType ||
		back.Liters != tx.Liters ||
		back.PricePerLiter != tx.PricePerLiter ||
		back.Total != tx.Total {
		t.Fatalf("record mismatch:\n%#v\n%#v", tx, back)
	}
	if !back.CreatedAt.Equal(tx.CreatedAt) {
		t.Fatalf("timestamp mismatch: %v vs %v", back.CreatedAt, tx.CreatedAt)
	}
}

func TestParseRecordMalformed(t *testing.T) {
	tx, _ := NewTransaction("p", "d", Gas93, 1, 2)
	good := tx.Record()

	cases := []string{
		"",
		"a;b;c",
		good + ";extra",
		strings.Replace(good, tx.ID, "not-a-uuid", 1),
		strings.Replace(good, ";1;2;2;", ";x;2;2;", 1),
	}
	for _, c := range cases {
		if _, err := ParseRecord(c); !common.Is(err, common.Protocol) {
			t.Fatalf("%q: expected Protocol error, got %v", c, err)
		}
	}

	bad := strings.Replace(good, "GAS_93", "GAS_100", 1)
	if _, err := ParseRecord(bad); !common.Is(err, common.InvalidFuelType) {
		t.Fatalf("expected InvalidFuelType, got %v", err)
	}
}

func TestCorruptedTotalDetected(t *testing.T) {
	tx, _ := NewTransaction("p", "d", Gas93, 10, 1000)
	line := strings.Replace(tx.Record(), ";10000;", ";9999;", 1)

	back, err := ParseRecord(line)
	if err != nil {
		t.Fatal(err)
	}
	if back.Consistent() {
		t.Fatalf("corrupted total should be detected")
	}
}

func TestValidateTransaction(t *testing.T) {
	tx, _ := NewTransaction("p", "d", Diesel, 3, 900)
	if err := tx.Validate(); err != nil {
		t.Fatal(err)
	}

	if err := (Transaction{}).Validate(); !common.Is(err, common.Protocol) {
		t.Fatalf("zero transaction should be a Protocol error, got %v", err)
	}

	bad := tx
	bad.FuelType = Unknown
	if err := bad.Validate(); !common.Is(err, common.InvalidFuelType) {
		t.Fatalf("expected InvalidFuelType, got %v", err)
	}

	bad = tx
	bad.Liters = 0
	if err := bad.Validate(); !common.Is(err, common.Protocol) {
		t.Fatalf("zero liters should be a Protocol error, got %v", err)
	}
}
