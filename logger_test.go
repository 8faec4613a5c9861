package sntp

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogrusLoggerWritesThroughComponentField(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	l := NewLogrusLogger(base)
	l.Debugf("attempt failed: %s", "timeout")

	assert.Contains(t, buf.String(), "attempt failed: timeout")
	assert.Contains(t, buf.String(), "component=sntp")
}

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	l := NewNoopLogger()
	assert.NotPanics(t, func() {
		l.Debugf("x")
		l.Infof("y")
		l.Warnf("z")
	})
}
