package commands

import (
	"io"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/config"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// newLogger returns a prefixed-text logger at level. With a logFile, every
// entry is also appended to it as plain text.
func newLogger(level string, logFile string) *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(level)
	logger.Formatter = new(prefixed.TextFormatter)

	if logFile != "" {
		logger.Hooks.Add(lfshook.NewHook(
			lfshook.PathMap{
				logrus.DebugLevel: logFile,
				logrus.InfoLevel:  logFile,
				logrus.WarnLevel:  logFile,
				logrus.ErrorLevel: logFile,
				logrus.FatalLevel: logFile,
				logrus.PanicLevel: logFile,
			},
			&logrus.TextFormatter{},
		))
	}

	return logger
}

// newSinkLogger is newLogger with the terminal output replaced by one short
// line per entry written to out.
func newSinkLogger(level string, logFile string, out func(string)) *logrus.Logger {
	logger := newLogger(level, logFile)
	logger.Out = io.Discard
	logger.Hooks.Add(common.NewSinkHook(out))
	return logger
}
