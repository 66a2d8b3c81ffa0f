// Package history keeps the admin's record of synced transactions,
// deduplicated by transaction id.
package history

import (
	"github.com/mosaicnetworks/fuelnet/src/fuel"
)

// Store is the admin's transaction history. Add ignores transactions whose id
// is already present and reports whether tx was new. All returns transactions
// in first-seen order.
type Store interface {
	Add(tx fuel.Transaction) (bool, error)
	All() ([]fuel.Transaction, error)
	Len() int
	StorePath() string
	Close() error
}
