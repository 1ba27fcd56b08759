// Package log adapts logrus to the gateway.Logger interface.
package log

import (
	"github.com/sirupsen/logrus"

	"github.com/khlpkg/gateway"
)

// Logrus forwards to a logrus entry, so fields attached to the entry are kept.
type Logrus struct {
	Entry *logrus.Entry
}

var _ gateway.Logger = &Logrus{}

func New(logger *logrus.Logger) *Logrus {
	return &Logrus{Entry: logrus.NewEntry(logger)}
}

// WithField returns a logger that adds the field to every message.
func (l *Logrus) WithField(key string, value interface{}) *Logrus {
	return &Logrus{Entry: l.Entry.WithField(key, value)}
}

func (l *Logrus) Debug(format string, args ...interface{}) {
	l.Entry.Debugf(format, args...)
}
func (l *Logrus) Info(format string, args ...interface{}) {
	l.Entry.Infof(format, args...)
}
func (l *Logrus) Warn(format string, args ...interface{}) {
	l.Entry.Warnf(format, args...)
}
func (l *Logrus) Error(format string, args ...interface{}) {
	l.Entry.Errorf(format, args...)
}
func (l *Logrus) Panic(format string, args ...interface{}) {
	l.Entry.Panicf(format, args...)
}
