package common

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SinkHook forwards every log entry, rendered as one human-readable line, to
// a callback. Presentation layers use it to fill their log windows.
type SinkHook struct {
	sink   func(string)
	levels []logrus.Level
}

// NewSinkHook returns a hook firing for Info and above. A nil sink gives a
// hook that drops everything.
func NewSinkHook(sink func(string)) *SinkHook {
	return &SinkHook{
		sink: sink,
		levels: []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
			logrus.WarnLevel,
			logrus.InfoLevel,
		},
	}
}

// Levels implements logrus.Hook.
func (h *SinkHook) Levels() []logrus.Level {
	return h.levels
}

// Fire implements logrus.Hook.
func (h *SinkHook) Fire(e *logrus.Entry) error {
	if h.sink == nil {
		return nil
	}
	h.sink(FormatLine(e))
	return nil
}

// FormatLine renders an entry as "[node] message", prefixed with the level for
// warnings and errors and followed by the attached error, if any.
func FormatLine(e *logrus.Entry) string {
	line := e.Message
	if node, ok := e.Data["node"]; ok {
		line = fmt.Sprintf("[%v] %s", node, line)
	}
	if e.Level <= logrus.WarnLevel {
		line = fmt.Sprintf("%s %s", e.Level.String(), line)
	}
	if err, ok := e.Data[logrus.ErrorKey]; ok {
		line = fmt.Sprintf("%s: %v", line, err)
	}
	return line
}
