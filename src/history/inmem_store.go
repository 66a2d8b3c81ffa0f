package history

import (
	"sync"

	"github.com/mosaicnetworks/fuelnet/src/fuel"
)

// InmemStore implements Store in memory.
type InmemStore struct {
	lock  sync.RWMutex
	txs   []fuel.Transaction
	index map[string]int
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		index: make(map[string]int),
	}
}

// Add implements Store.
func (s *InmemStore) Add(tx fuel.Transaction) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.index[tx.ID]; ok {
		return false, nil
	}
	s.index[tx.ID] = len(s.txs)
	s.txs = append(s.txs, tx)
	return true, nil
}

// All implements Store.
func (s *InmemStore) All() ([]fuel.Transaction, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]fuel.Transaction{}, s.txs...), nil
}

// Len implements Store.
func (s *InmemStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.txs)
}

// StorePath implements Store.
func (s *InmemStore) StorePath() string {
	return ""
}

// Close implements Store.
func (s *InmemStore) Close() error {
	return nil
}
