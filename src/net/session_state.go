package net

import "sync/atomic"

// SessionState is the connection state of a Session.
type SessionState uint32

const (
	// Disconnected is the initial state, and the state after Close or a failed
	// initial connect.
	Disconnected SessionState = iota
	// Connecting is the state during an explicit Connect.
	Connecting
	// Connected means envelopes can be sent.
	Connected
	// Reconnecting is the state after an I/O failure, while the session
	// retries on its fixed interval.
	Reconnecting
	// Failed means every reconnect attempt failed. The owner may call Connect
	// again.
	Failed
)

// String ...
func (s SessionState) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Reconnecting:
		return "Reconnecting"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// stateManager wraps a SessionState with atomic get and set methods.
type stateManager struct {
	state SessionState
}

func (m *stateManager) get() SessionState {
	return SessionState(atomic.LoadUint32((*uint32)(&m.state)))
}

func (m *stateManager) set(s SessionState) {
	atomic.StoreUint32((*uint32)(&m.state), uint32(s))
}
