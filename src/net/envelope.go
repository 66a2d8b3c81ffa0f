package net

import (
	"fmt"
	"time"
)

// Envelope is the unit exchanged between nodes. Kind and OriginID are set at
// construction; the destination and payload entries are added as needed.
type Envelope struct {
	Kind          Kind      `msgpack:"kind"`
	OriginID      string    `msgpack:"origin"`
	DestinationID string    `msgpack:"destination,omitempty"`
	Payload       Payload   `msgpack:"payload"`
	CreatedAt     time.Time `msgpack:"createdAt"`
}

// NewEnvelope ...
func NewEnvelope(kind Kind, originID string) *Envelope {
	return &Envelope{
		Kind:      kind,
		OriginID:  originID,
		CreatedAt: time.Now(),
	}
}

// To sets the destination id.
func (e *Envelope) To(destinationID string) *Envelope {
	e.DestinationID = destinationID
	return e
}

// Set adds a payload entry.
func (e *Envelope) Set(key string, v Value) *Envelope {
	e.Payload.Set(key, v)
	return e
}

// String ...
func (e *Envelope) String() string {
	return fmt.Sprintf("Envelope{kind=%s, origin=%s, destination=%s, keys=%v}",
		e.Kind, e.OriginID, e.DestinationID, e.Payload.Keys())
}
