package logx

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger() (*DefaultLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewStandardLoggerAdapter(log.New(&buf, "", 0)), &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger()

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "INFO: shown 2")

	l.SetLevel(LevelError)
	buf.Reset()
	l.Warn("also hidden")
	l.Error("boom")
	assert.NotContains(t, buf.String(), "also hidden")
	assert.Contains(t, buf.String(), "ERROR: boom")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "unknown", Level(42).String())
}

func TestNopDiscardsEverything(t *testing.T) {
	// Must not panic.
	var l Logger = Nop{}
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")
	l.SetLevel(LevelDebug)
}
