package net

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/sirupsen/logrus"
)

// DefaultDialTimeout bounds a single connect attempt.
const DefaultDialTimeout = 3 * time.Second

// ErrSessionClosed is returned by Connect after Close.
var ErrSessionClosed = errors.New("session closed")

// ReconnectPolicy is the fixed-interval retry schedule applied after an I/O
// failure on an established session.
type ReconnectPolicy struct {
	Interval    time.Duration `mapstructure:"reconnect-interval"`
	MaxAttempts int           `mapstructure:"reconnect-attempts"`
}

// Handler processes inbound envelopes. It is called from the receive loop,
// one envelope at a time, in arrival order.
type Handler func(*Envelope)

// SessionConfig ...
type SessionConfig struct {
	// LocalID is used for logging only; envelopes carry their own origin.
	LocalID string

	// Target is the host:port to connect to.
	Target string

	Policy      ReconnectPolicy
	DialTimeout time.Duration

	// Dialer defaults to TCPDialer.
	Dialer Dialer

	// Handler receives every valid inbound envelope.
	Handler Handler

	// OnConnect, if set, runs after every successful connect with reconnect
	// false for Connect and true for an automatic reconnect. It runs before
	// Connect returns, on the caller's goroutine, and on the reconnect
	// goroutine otherwise.
	OnConnect func(reconnect bool)

	// OnFailed, if set, runs when the reconnect attempts are exhausted.
	OnFailed func()
}

/*
Session owns one outbound connection to a fixed target and survives its
failure.

	Disconnected -> Connecting -> Connected
	Connected --(read/write failure)--> Reconnecting -> Connected | Failed

Send never blocks on the receive loop and reports NotConnected outside of
Connected. Close is the only cancellation primitive: it closes the socket and
stops any pending reconnect.
*/
type Session struct {
	conf   SessionConfig
	logger *logrus.Entry

	state stateManager

	connLock sync.Mutex
	conn     net.Conn

	writeLock sync.Mutex

	closed  bool
	closeCh chan struct{}
}

// NewSession returns a Disconnected session. Call Connect to dial.
func NewSession(conf SessionConfig, logger *logrus.Entry) *Session {
	if conf.Dialer == nil {
		conf.Dialer = TCPDialer{}
	}
	if conf.DialTimeout <= 0 {
		conf.DialTimeout = DefaultDialTimeout
	}
	if conf.Handler == nil {
		conf.Handler = func(*Envelope) {}
	}
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &Session{
		conf: conf,
		logger: logger.WithFields(logrus.Fields{
			"node":   conf.LocalID,
			"target": conf.Target,
		}),
		closeCh: make(chan struct{}),
	}
}

// Target returns the address the session dials.
func (s *Session) Target() string {
	return s.conf.Target
}

// State returns the current state.
func (s *Session) State() SessionState {
	return s.state.get()
}

// Connected reports whether the state is Connected.
func (s *Session) Connected() bool {
	return s.state.get() == Connected
}

// Connect dials the target once and starts the receive loop. It is allowed
// from Disconnected and Failed; on an already Connected session it is a
// no-op. While a reconnect is in progress it returns a Busy error.
func (s *Session) Connect() error {
	s.connLock.Lock()
	if s.closed {
		s.connLock.Unlock()
		return ErrSessionClosed
	}
	switch s.state.get() {
	case Connected:
		s.connLock.Unlock()
		return nil
	case Connecting, Reconnecting:
		s.connLock.Unlock()
		return common.NewErr(common.Busy, "connect", s.conf.Target, errors.New("connection attempt in progress"))
	}
	s.state.set(Connecting)
	s.connLock.Unlock()

	conn, err := s.conf.Dialer.Dial(s.conf.Target, s.conf.DialTimeout)
	if err != nil {
		s.state.set(Disconnected)
		s.logger.WithError(err).Error("Failed to connect")
		return common.NewErr(common.Transport, "connect", s.conf.Target, err)
	}

	if !s.install(conn) {
		return ErrSessionClosed
	}
	s.logger.Info("Connected")

	if s.conf.OnConnect != nil {
		s.conf.OnConnect(false)
	}
	return nil
}

// install makes conn the active connection and starts its receive loop. It
// returns false if the session was closed in the meantime.
func (s *Session) install(conn net.Conn) bool {
	s.connLock.Lock()
	defer s.connLock.Unlock()

	if s.closed {
		conn.Close()
		s.state.set(Disconnected)
		return false
	}
	s.conn = conn
	s.state.set(Connected)

	go s.receiveLoop(conn)
	return true
}

// Send writes one envelope. Outside of Connected it returns a NotConnected
// error without touching the network. A write failure starts the reconnect
// sequence and is returned as a Transport error.
func (s *Session) Send(e *Envelope) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	s.connLock.Lock()
	conn := s.conn
	s.connLock.Unlock()

	if conn == nil || s.state.get() != Connected {
		return common.NewErr(common.NotConnected, "send "+e.Kind.String(), s.conf.Target, nil)
	}

	if err := WriteEnvelope(conn, e); err != nil {
		if common.Is(err, common.Transport) {
			s.connectionLost(conn, err)
		}
		return err
	}
	return nil
}

// Close stops the session permanently.
func (s *Session) Close() error {
	s.connLock.Lock()
	defer s.connLock.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.closeCh)
	s.state.set(Disconnected)

	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	s.logger.Debug("Session closed")
	return err
}

func (s *Session) receiveLoop(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		e, err := ReadEnvelope(r)
		if err != nil {
			if common.Is(err, common.Protocol) {
				s.logger.WithError(err).Warn("Dropping undecodable envelope")
				continue
			}
			s.connectionLost(conn, err)
			return
		}
		if err := e.Validate(); err != nil {
			s.logger.WithError(err).Warn("Dropping invalid envelope")
			continue
		}
		s.conf.Handler(e)
	}
}

// connectionLost retires conn and schedules the reconnect sequence. Only the
// first caller for a given conn has any effect.
func (s *Session) connectionLost(conn net.Conn, cause error) {
	s.connLock.Lock()
	if s.conn != conn {
		s.connLock.Unlock()
		return
	}
	s.conn = nil
	conn.Close()
	if s.closed {
		s.connLock.Unlock()
		return
	}
	s.state.set(Reconnecting)
	s.connLock.Unlock()

	entry := s.logger
	if cause != nil && cause != io.EOF {
		entry = entry.WithError(cause)
	}
	entry.Warn("Connection lost, reconnecting")

	go s.reconnect()
}

func (s *Session) reconnect() {
	policy := s.conf.Policy
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		t := time.NewTimer(policy.Interval)
		select {
		case <-t.C:
		case <-s.closeCh:
			t.Stop()
			return
		}

		conn, err := s.conf.Dialer.Dial(s.conf.Target, s.conf.DialTimeout)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"max":     policy.MaxAttempts,
			}).WithError(err).Debug("Reconnect attempt failed")
			continue
		}

		if !s.install(conn) {
			return
		}
		s.logger.WithField("attempt", attempt).Info("Reconnected")

		if s.conf.OnConnect != nil {
			s.conf.OnConnect(true)
		}
		return
	}

	s.connLock.Lock()
	if s.closed {
		s.connLock.Unlock()
		return
	}
	s.state.set(Failed)
	s.connLock.Unlock()

	s.logger.WithField("attempts", policy.MaxAttempts).Error("Could not reconnect")
	if s.conf.OnFailed != nil {
		s.conf.OnFailed()
	}
}
