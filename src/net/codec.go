package net

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	frameHeaderSize = 4

	// MaxFrameSize bounds a single encoded envelope.
	MaxFrameSize = 16 << 20
)

/*
Each envelope travels as one frame: a 4-byte big-endian length followed by the
msgpack encoding of the envelope.

A frame whose body fails to decode is a Protocol error; the stream stays in
sync and the reader may continue. A frame announcing more than MaxFrameSize
bytes, or any I/O failure, is a Transport error and the stream is unusable.
*/

// WriteEnvelope encodes e and writes it as a single frame.
func WriteEnvelope(w io.Writer, e *Envelope) error {
	body, err := msgpack.Marshal(e)
	if err != nil {
		return common.NewErr(common.Protocol, "encode envelope", e.Kind.String(), err)
	}
	if len(body) > MaxFrameSize {
		return common.NewErr(common.Protocol, "encode envelope", e.Kind.String(),
			fmt.Errorf("frame of %d bytes exceeds limit", len(body)))
	}

	frame := make([]byte, frameHeaderSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[frameHeaderSize:], body)

	if _, err := w.Write(frame); err != nil {
		return common.NewErr(common.Transport, "write envelope", e.Kind.String(), err)
	}
	return nil
}

// ReadEnvelope reads and decodes the next frame. io.EOF is returned unwrapped
// when the stream ends cleanly between frames.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, common.NewErr(common.Transport, "read envelope", "header", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, common.NewErr(common.Transport, "read envelope", "header",
			fmt.Errorf("frame of %d bytes exceeds limit", size))
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, common.NewErr(common.Transport, "read envelope", "body", err)
	}

	e := new(Envelope)
	if err := msgpack.Unmarshal(body, e); err != nil {
		return nil, common.NewErr(common.Protocol, "decode envelope", "body", err)
	}
	return e, nil
}
