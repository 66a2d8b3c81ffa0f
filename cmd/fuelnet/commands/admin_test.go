package commands

import (
	"testing"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
)

func TestParsePriceList(t *testing.T) {
	prices, err := parsePriceList("GAS_93=1000, diesel=900,,97=1250.5")
	if err != nil {
		t.Fatal(err)
	}
	if len(prices) != 3 || prices[fuel.Gas93] != 1000 || prices[fuel.Diesel] != 900 || prices[fuel.Gas97] != 1250.5 {
		t.Fatalf("unexpected prices %v", prices)
	}

	if _, err := parsePriceList("PLASMA=10"); !common.Is(err, common.InvalidFuelType) {
		t.Fatalf("expected InvalidFuelType, got %v", err)
	}
	for _, bad := range []string{"GAS_93", "GAS_93=abc", "GAS_93=-1"} {
		if _, err := parsePriceList(bad); err == nil {
			t.Fatalf("%q should be rejected", bad)
		}
	}
}
