package net

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Broadcast sends e to every peer concurrently and returns how many sends
// succeeded. Failures are logged; a failing peer is dropped by its own
// receive loop.
func Broadcast(peers []*Peer, e *Envelope, logger *logrus.Entry) int {
	var (
		g    errgroup.Group
		sent int64
	)
	for _, p := range peers {
		p := p
		g.Go(func() error {
			if err := p.Send(e); err != nil {
				if logger != nil {
					logger.WithField("peer", p.ID()).WithError(err).Warn("Broadcast send failed")
				}
				return nil
			}
			atomic.AddInt64(&sent, 1)
			return nil
		})
	}
	g.Wait()
	return int(sent)
}
