package net

import (
	"net"
	"sync"

	"github.com/mosaicnetworks/fuelnet/src/common"
)

// Peer is the server side of one accepted connection.
type Peer struct {
	conn net.Conn

	idLock sync.RWMutex
	id     string

	writeLock sync.Mutex
}

func newPeer(conn net.Conn) *Peer {
	return &Peer{conn: conn}
}

// ID returns the origin id of the first envelope received on the connection,
// or "" before that.
func (p *Peer) ID() string {
	p.idLock.RLock()
	defer p.idLock.RUnlock()
	return p.id
}

func (p *Peer) bind(id string) {
	p.idLock.Lock()
	defer p.idLock.Unlock()
	p.id = id
}

// RemoteAddr ...
func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// Send writes one envelope. On a Transport failure the connection is closed,
// which makes its receive loop exit and unregister the peer.
func (p *Peer) Send(e *Envelope) error {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()

	if err := WriteEnvelope(p.conn, e); err != nil {
		if common.Is(err, common.Transport) {
			p.conn.Close()
		}
		return err
	}
	return nil
}

// Close closes the underlying connection.
func (p *Peer) Close() error {
	return p.conn.Close()
}
