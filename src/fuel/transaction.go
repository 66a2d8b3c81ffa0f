package fuel

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/fuelnet/src/common"
)

// Transaction is the record of one completed refuel. It is built once by the
// pump and never modified; Total is stored, not derived.
type Transaction struct {
	ID            string    `msgpack:"id" json:"id"`
	ClientID      string    `msgpack:"clientId" json:"clientId"`
	DistributorID string    `msgpack:"distributorId" json:"distributorId"`
	FuelType      Type      `msgpack:"fuelType" json:"fuelType"`
	Liters        float64   `msgpack:"liters" json:"liters"`
	PricePerLiter float64   `msgpack:"pricePerLiter" json:"pricePerLiter"`
	Total         float64   `msgpack:"total" json:"total"`
	CreatedAt     time.Time `msgpack:"createdAt" json:"createdAt"`
}

// NewTransaction validates the inputs and stamps a fresh UUID and the current
// time. Total is liters*pricePerLiter.
func NewTransaction(clientID, distributorID string, t Type, liters, pricePerLiter float64) (Transaction, error) {
	if !t.Valid() {
		return Transaction{}, common.NewErr(common.InvalidFuelType, "new transaction", t.String(), nil)
	}
	if !(liters > 0) {
		return Transaction{}, common.NewErr(common.InvalidArgument, "new transaction", "liters",
			fmt.Errorf("liters must be positive, got %v", liters))
	}
	if !(pricePerLiter > 0) {
		return Transaction{}, common.NewErr(common.InvalidArgument, "new transaction", "pricePerLiter",
			fmt.Errorf("price must be positive, got %v", pricePerLiter))
	}

	return Transaction{
		ID:            uuid.New().String(),
		ClientID:      clientID,
		DistributorID: distributorID,
		FuelType:      t,
		Liters:        liters,
		PricePerLiter: pricePerLiter,
		Total:         liters * pricePerLiter,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Validate checks a transaction received from another node: a UUID id, a
// declared fuel type and positive amounts.
func (tx Transaction) Validate() error {
	if _, err := uuid.Parse(tx.ID); err != nil {
		return common.NewErr(common.Protocol, "validate transaction", "id", err)
	}
	if !tx.FuelType.Valid() {
		return common.NewErr(common.InvalidFuelType, "validate transaction", tx.ID, nil)
	}
	if !(tx.Liters > 0) || !(tx.PricePerLiter > 0) {
		return common.NewErr(common.Protocol, "validate transaction", tx.ID,
			fmt.Errorf("liters and price must be positive, got %v and %v", tx.Liters, tx.PricePerLiter))
	}
	return nil
}

// Consistent reports whether the stored total still matches the other fields.
// A record failing this check was corrupted after creation.
func (tx Transaction) Consistent() bool {
	return tx.Total == tx.Liters*tx.PricePerLiter
}

// String ...
func (tx Transaction) String() string {
	return fmt.Sprintf("Transaction{id=%s, pump=%s, type=%s, liters=%.2f, total=$%.2f}",
		tx.ID, tx.ClientID, tx.FuelType.DisplayName(), tx.Liters, tx.Total)
}
