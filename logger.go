package sntp

import logrus "github.com/sirupsen/logrus"

// logrusLogger is an opt-in Logger (see NewLogrusLogger), wrapping a
// *logrus.Logger to log packet round-trip details. It is field-structured,
// level-gated, and has no effect on control flow. ClientConfig falls back
// to the no-op Logger, not this one, when none is supplied.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps l (or logrus.StandardLogger() if l is nil) as a
// Logger, tagging every line with component=sntp.
func NewLogrusLogger(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{entry: l.WithField("component", "sntp")}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }

// noopLogger is the zero-overhead default Logger that ClientConfig applies
// when the caller supplies none.
type noopLogger struct{}

// NewNoopLogger returns a Logger whose methods do nothing.
func NewNoopLogger() Logger { return noopLogger{} }

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
