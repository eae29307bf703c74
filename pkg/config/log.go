package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NamedLogger creates a named package logger.
func NamedLogger(name string) *logrus.Entry {
	return logrus.WithField("pkg", name)
}

// SetVerbose switches the global log level between info and debug.
func SetVerbose(verbose bool) {
	logrus.SetOutput(os.Stderr)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
