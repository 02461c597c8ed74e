// Package logging builds the logrus logger shared by spactl's services.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to out at the given level.
// An unparsable level falls back to warn.
func New(level string, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.WarnLevel
	}
	log.SetLevel(lvl)

	return log
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Err returns the "error" field for an error
//
//	log.WithFields(logging.Err(err)).Warn("logout request failed")
func Err(err error) logrus.Fields {
	if err == nil {
		return logrus.Fields{}
	}
	return logrus.Fields{"error": err.Error()}
}
