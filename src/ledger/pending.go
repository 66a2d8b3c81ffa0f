package ledger

import (
	"sync"

	"github.com/mosaicnetworks/fuelnet/src/fuel"
)

// Pending buffers transactions recorded while the distributor had no admin
// session, until they can be flushed.
type Pending struct {
	lock sync.Mutex
	txs  []fuel.Transaction
}

// NewPending ...
func NewPending() *Pending {
	return &Pending{}
}

// Add ...
func (p *Pending) Add(tx fuel.Transaction) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.txs = append(p.txs, tx)
}

// Drain empties the buffer and returns its content.
func (p *Pending) Drain() []fuel.Transaction {
	p.lock.Lock()
	defer p.lock.Unlock()
	txs := p.txs
	p.txs = nil
	return txs
}

// Restore puts txs back in front of anything added since they were drained.
func (p *Pending) Restore(txs []fuel.Transaction) {
	if len(txs) == 0 {
		return
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	p.txs = append(append([]fuel.Transaction{}, txs...), p.txs...)
}

// Snapshot returns a copy of the buffer.
func (p *Pending) Snapshot() []fuel.Transaction {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]fuel.Transaction{}, p.txs...)
}

// Len ...
func (p *Pending) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.txs)
}
