package common

import (
	"errors"
	"io/ioutil"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSinkHook(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)

	logger := logrus.New()
	logger.Out = ioutil.Discard
	logger.Level = logrus.DebugLevel
	logger.Hooks.Add(NewSinkHook(func(l string) {
		mu.Lock()
		lines = append(lines, l)
		mu.Unlock()
	}))

	entry := logger.WithField("node", "DIST-001")
	entry.Debug("not forwarded")
	entry.Info("server started")
	entry.WithError(errors.New("boom")).Error("write failed")

	mu.Lock()
	defer mu.Unlock()

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "[DIST-001] server started" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "error [DIST-001] write failed") || !strings.HasSuffix(lines[1], "boom") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
}
