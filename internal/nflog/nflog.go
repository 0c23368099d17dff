// Package nflog wraps logrus with the field conventions NewFS's core uses
// for mount/allocation/persistence tracing. The teacher repo logs nothing
// of its own (squashfs is a pure library); logrus is adopted from the
// pack's direktiv-vorteil repo, which structures its own fs-adjacent
// logging the same way: a package-level entry point plus WithField
// call sites at operation boundaries.
package nflog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the subset of *logrus.Entry that core code calls through,
// kept narrow so tests can swap in a discard logger without dragging in
// logrus's full surface.
type Logger interface {
	WithField(key string, value interface{}) *logrus.Entry
	WithFields(fields logrus.Fields) *logrus.Entry
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// New returns a logrus.Logger configured with NewFS's default text
// formatter, writing to stderr at info level.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}
