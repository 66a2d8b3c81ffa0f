package net

import (
	"errors"
	"net"
	"time"
)

var (
	errNotAdvertisable = errors.New("local bind address is not advertisable")
	errNotTCP          = errors.New("local address is not a TCP address")
)

// TCPDialer dials plain TCP connections.
type TCPDialer struct{}

// Dial implements the Dialer interface.
func (TCPDialer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", address, timeout)
}

// TCPStreamLayer implements StreamLayer interface for plain TCP.
type TCPStreamLayer struct {
	TCPDialer

	advertise string
	listener  *net.TCPListener
}

// NewTCPStreamLayer binds bindAddr. advertise may be empty, in which case the
// bound address is advertised.
func NewTCPStreamLayer(bindAddr string, advertise string) (*TCPStreamLayer, error) {
	// Try to bind
	list, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	// Try to resolve the advertise address
	var resolvedAdvertise net.Addr
	if advertise != "" {
		resolvedAdvertise, err = net.ResolveTCPAddr("tcp", advertise)
		if err != nil {
			list.Close()
			return nil, err
		}
	}

	if resolvedAdvertise == nil {
		resolvedAdvertise = list.Addr()
	}

	// Verify that we have a usable advertise address
	addr, ok := resolvedAdvertise.(*net.TCPAddr)
	if !ok {
		list.Close()
		return nil, errNotTCP
	}
	if advertise != "" && addr.IP.IsUnspecified() {
		list.Close()
		return nil, errNotAdvertisable
	}

	return &TCPStreamLayer{
		advertise: advertise,
		listener:  list.(*net.TCPListener),
	}, nil
}

// Accept implements the net.Listener interface.
func (t *TCPStreamLayer) Accept() (c net.Conn, err error) {
	return t.listener.Accept()
}

// Close implements the net.Listener interface.
func (t *TCPStreamLayer) Close() (err error) {
	return t.listener.Close()
}

// Addr implements the net.Listener interface.
func (t *TCPStreamLayer) Addr() net.Addr {
	return t.listener.Addr()
}

// AdvertiseAddr implements the SteamLayer interface.
func (t *TCPStreamLayer) AdvertiseAddr() string {
	// Use an advertise addr if provided
	if t.advertise != "" {
		return t.advertise
	}
	return t.listener.Addr().String()
}
