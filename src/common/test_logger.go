package common

import (
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
)

// This can be used as the destination for a logger and it'll
// map them into calls to testing.T.Log, so that you only see
// the logging for failed tests.
type testLoggerAdapter struct {
	t      testing.TB
	prefix string
	done   int32
}

func (a *testLoggerAdapter) Write(d []byte) (int, error) {
	// background goroutines may outlive the test
	if atomic.LoadInt32(&a.done) == 1 {
		return len(d), nil
	}
	if len(d) > 0 && d[len(d)-1] == '\n' {
		d = d[:len(d)-1]
	}
	if a.prefix != "" {
		l := a.prefix + ": " + string(d)
		a.t.Log(l)
		return len(l), nil
	}
	a.t.Log(string(d))
	return len(d), nil
}

// NewTestLogger returns a debug-level logger writing to t.Log.
func NewTestLogger(t testing.TB) *logrus.Logger {
	adapter := &testLoggerAdapter{t: t}
	t.Cleanup(func() { atomic.StoreInt32(&adapter.done, 1) })

	logger := logrus.New()
	logger.Out = adapter
	logger.Level = logrus.DebugLevel
	return logger
}

// NewTestEntry returns an Entry of NewTestLogger with the prefix field set.
func NewTestEntry(t testing.TB, prefix string) *logrus.Entry {
	return NewTestLogger(t).WithField("prefix", prefix)
}
