package net

import (
	"net"
	"time"
)

// Dialer opens outbound connections for a Session.
type Dialer interface {
	// Dial is used to create a new outgoing connection
	Dial(address string, timeout time.Duration) (net.Conn, error)
}

// StreamLayer is used with the Server to provide the low level stream
// abstraction.
type StreamLayer interface {
	net.Listener
	Dialer

	// AdvertiseAddr returns the publicly-reachable address of the stream
	AdvertiseAddr() string
}
