package common

import (
	"errors"
	"fmt"
)

// ErrType classifies the failures a node can run into.
type ErrType uint32

const (
	// Transport is a connect, read, or write failure on a stream.
	Transport ErrType = iota
	// Protocol is an unexpected kind or a payload breaking its field contract.
	Protocol
	// InvalidFuelType is an unknown fuel name.
	InvalidFuelType
	// Storage is a read or write failure on one ledger target.
	Storage
	// IntegrityMismatch means primary and backup disagree.
	IntegrityMismatch
	// Busy means the node cannot take the operation right now.
	Busy
	// NotConnected means there is no established session.
	NotConnected
	// InvalidArgument is a rejected input value.
	InvalidArgument
)

// String ...
func (t ErrType) String() string {
	switch t {
	case Transport:
		return "Transport"
	case Protocol:
		return "Protocol"
	case InvalidFuelType:
		return "Invalid Fuel Type"
	case Storage:
		return "Storage"
	case IntegrityMismatch:
		return "Integrity Mismatch"
	case Busy:
		return "Busy"
	case NotConnected:
		return "Not Connected"
	case InvalidArgument:
		return "Invalid Argument"
	default:
		return "Unknown"
	}
}

// Err is the error type returned across package boundaries. Op names the
// operation, Key the offending identifier (fuel name, file path, peer id).
type Err struct {
	Type  ErrType
	Op    string
	Key   string
	Cause error
}

// NewErr ...
func NewErr(t ErrType, op string, key string, cause error) *Err {
	return &Err{
		Type:  t,
		Op:    op,
		Key:   key,
		Cause: cause,
	}
}

// Error ...
func (e *Err) Error() string {
	m := fmt.Sprintf("%s, %s", e.Op, e.Type)
	if e.Key != "" {
		m = fmt.Sprintf("%s, %s", m, e.Key)
	}
	if e.Cause != nil {
		m = fmt.Sprintf("%s: %v", m, e.Cause)
	}
	return m
}

// Unwrap returns the underlying cause.
func (e *Err) Unwrap() error {
	return e.Cause
}

// Is checks that err, or any error it wraps, is an *Err of type t.
func Is(err error, t ErrType) bool {
	var e *Err
	return errors.As(err, &e) && e.Type == t
}
