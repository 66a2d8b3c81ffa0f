package net

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/sirupsen/logrus"
)

// PeerHandler processes an envelope received from p. Calls for one peer are
// sequential; calls for different peers run concurrently.
type PeerHandler func(p *Peer, e *Envelope)

// ServerConfig ...
type ServerConfig struct {
	// LocalID is used for logging only.
	LocalID string

	Handler PeerHandler

	// OnLeave, if set, runs after a bound peer was removed from the registry.
	OnLeave func(id string)
}

// Server accepts connections on a StreamLayer and runs one receive loop per
// connection. Each peer is registered under the origin id of its first
// envelope.
type Server struct {
	conf     ServerConfig
	stream   StreamLayer
	registry *Registry
	logger   *logrus.Entry

	connLock sync.Mutex
	conns    map[net.Conn]struct{}

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	wg sync.WaitGroup
}

// NewServer ...
func NewServer(conf ServerConfig, stream StreamLayer, logger *logrus.Entry) *Server {
	if conf.Handler == nil {
		conf.Handler = func(*Peer, *Envelope) {}
	}
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}
	return &Server{
		conf:       conf,
		stream:     stream,
		registry:   NewRegistry(),
		logger:     logger.WithField("node", conf.LocalID),
		conns:      make(map[net.Conn]struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Registry returns the live peer registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	if addr := s.stream.Addr(); addr != nil {
		return addr.String()
	}
	return ""
}

// AdvertiseAddr ...
func (s *Server) AdvertiseAddr() string {
	return s.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the server is shutdown.
func (s *Server) IsShutdown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

// Listen accepts incoming connections until Close. It blocks.
func (s *Server) Listen() {
	for {
		// Accept incoming connections
		conn, err := s.stream.Accept()
		if err != nil {
			if s.IsShutdown() {
				return
			}
			s.logger.WithError(err).Error("Failed to accept connection")
			continue
		}
		s.logger.WithField("from", conn.RemoteAddr()).Debug("Accepted connection")

		if !s.track(conn) {
			conn.Close()
			return
		}

		// Handle the connection in dedicated routine
		go s.handleConn(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.connLock.Lock()
	defer s.connLock.Unlock()
	if s.IsShutdown() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.connLock.Lock()
	defer s.connLock.Unlock()
	delete(s.conns, conn)
}

// handleConn is used to handle an inbound connection for its lifespan.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	p := newPeer(conn)
	defer func() {
		conn.Close()
		s.untrack(conn)
		if id := p.ID(); id != "" {
			if s.registry.Remove(id, p) {
				s.logger.WithField("peer", id).Info("Peer disconnected")
				if s.conf.OnLeave != nil {
					s.conf.OnLeave(id)
				}
			}
		}
	}()

	r := bufio.NewReader(conn)
	for {
		e, err := ReadEnvelope(r)
		if err != nil {
			if common.Is(err, common.Protocol) {
				s.logger.WithError(err).Warn("Dropping undecodable envelope")
				continue
			}
			if err != io.EOF && !s.IsShutdown() {
				s.logger.WithError(err).Debug("Connection closed")
			}
			return
		}
		if err := e.Validate(); err != nil {
			s.logger.WithError(err).Warn("Dropping invalid envelope")
			continue
		}

		if p.ID() == "" {
			p.bind(e.OriginID)
			if prev := s.registry.Add(p); prev != nil && prev != p {
				s.logger.WithField("peer", e.OriginID).Debug("Replacing stale connection")
				prev.Close()
			}
			s.logger.WithFields(logrus.Fields{
				"peer": e.OriginID,
				"from": p.RemoteAddr(),
			}).Info("Peer registered")
		}

		s.conf.Handler(p, e)
	}
}

// Close stops accepting, closes every open connection and waits for their
// receive loops to exit.
func (s *Server) Close() error {
	s.shutdownLock.Lock()
	if s.shutdown {
		s.shutdownLock.Unlock()
		return nil
	}
	s.shutdown = true
	s.connLock.Lock()
	close(s.shutdownCh)
	s.connLock.Unlock()
	s.shutdownLock.Unlock()

	err := s.stream.Close()

	s.connLock.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.connLock.Unlock()

	s.wg.Wait()
	return err
}
