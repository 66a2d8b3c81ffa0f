package net

import (
	"sort"
	"sync"
)

// Registry maps the logical id of a connected peer to its Peer. Entries are
// added by a connection's own receive loop on its first envelope and removed
// by the same loop on exit.
type Registry struct {
	lock  sync.RWMutex
	peers map[string]*Peer
}

// NewRegistry ...
func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[string]*Peer),
	}
}

// Add binds p under its id and returns the peer it replaced, if any.
func (r *Registry) Add(p *Peer) *Peer {
	r.lock.Lock()
	defer r.lock.Unlock()

	prev := r.peers[p.ID()]
	r.peers[p.ID()] = p
	return prev
}

// Remove deletes id only if it is still bound to p, so a stale connection
// exiting after its peer reconnected does not evict the new one.
func (r *Registry) Remove(id string, p *Peer) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if cur, ok := r.peers[id]; ok && cur == p {
		delete(r.peers, id)
		return true
	}
	return false
}

// Get ...
func (r *Registry) Get(id string) (*Peer, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	p, ok := r.peers[id]
	return p, ok
}

// Len ...
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.peers)
}

// Snapshot returns the current peers sorted by id. Fan-out iterates the
// snapshot; peers leaving meanwhile just fail their own send.
func (r *Registry) Snapshot() []*Peer {
	r.lock.RLock()
	res := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		res = append(res, p)
	}
	r.lock.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].ID() < res[j].ID() })
	return res
}

// IDs returns the sorted ids of the current peers.
func (r *Registry) IDs() []string {
	snap := r.Snapshot()
	ids := make([]string, len(snap))
	for i, p := range snap {
		ids[i] = p.ID()
	}
	return ids
}
