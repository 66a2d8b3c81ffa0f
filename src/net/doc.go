// Package net implements the transport shared by every tier of the fuel
// network.
//
// Envelope
//
// An Envelope is the unit exchanged between nodes: a Kind, the origin id, an
// optional destination id, and an ordered Payload of tagged Values. Each Kind
// has a field contract (see Contract) checked by Validate when an envelope is
// received; envelopes breaking their contract are dropped without closing the
// connection. Envelopes are framed with a 4-byte big-endian length and encoded
// with msgpack.
//
// Session
//
// Nodes that dial out (pump to distributor, distributor to admin) use a
// Session. A Session owns one connection, runs a receive loop, and retries on
// a fixed interval after an I/O failure until it reconnects or exhausts its
// ReconnectPolicy.
//
// Server
//
// Nodes that accept connections (distributor, admin) use a Server on top of a
// StreamLayer. Every accepted connection gets its own receive loop, and its
// Peer is registered in the Registry under the origin id of the first
// envelope it sends. Broadcast fans an envelope out to a snapshot of the
// registry.
package net
