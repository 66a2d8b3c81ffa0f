package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsThroughWrapping(t *testing.T) {
	base := NewErr(Busy, "submit refuel", "pump-1", nil)
	wrapped := fmt.Errorf("outer: %w", base)

	if !Is(wrapped, Busy) {
		t.Fatalf("expected Busy through wrapping")
	}
	if Is(wrapped, Transport) {
		t.Fatalf("Busy error should not match Transport")
	}
	if Is(errors.New("plain"), Busy) {
		t.Fatalf("plain error should not match")
	}
}

func TestErrMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewErr(Transport, "dial", "127.0.0.1:1", cause)

	want := "dial, Transport, 127.0.0.1:1: connection refused"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause should be reachable with errors.Is")
	}
}
