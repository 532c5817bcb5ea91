// Package logx provides the diagnostic logger used across the apschat
// application. It is intentionally small: leveled output on top of the
// standard log package, with an interface so components can be tested
// against a recording implementation.
package logx

import (
	"log"
	"os"
	"sync"
)

// Level represents a logging severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Logger defines the interface for diagnostic logging.
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	SetLevel(level Level)
}

// DefaultLogger provides a basic logger implementation using the standard
// log package, writing to stderr.
type DefaultLogger struct {
	logger *log.Logger
	level  Level
	mu     sync.Mutex
}

// NewDefaultLogger creates a new logger writing to stderr with standard flags.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(os.Stderr, "[apschat] ", log.LstdFlags|log.Lmsgprefix),
		level:  LevelInfo,
	}
}

// NewStandardLoggerAdapter creates a Logger that wraps an existing
// standard log.Logger.
func NewStandardLoggerAdapter(logger *log.Logger) *DefaultLogger {
	if logger == nil {
		return NewDefaultLogger()
	}
	return &DefaultLogger{logger: logger, level: LevelInfo}
}

func (l *DefaultLogger) Debug(format string, v ...interface{}) { l.logAt(LevelDebug, format, v...) }
func (l *DefaultLogger) Info(format string, v ...interface{})  { l.logAt(LevelInfo, format, v...) }
func (l *DefaultLogger) Warn(format string, v ...interface{})  { l.logAt(LevelWarn, format, v...) }
func (l *DefaultLogger) Error(format string, v ...interface{}) { l.logAt(LevelError, format, v...) }

// SetLevel updates the minimum level that will be written.
func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *DefaultLogger) logAt(level Level, format string, v ...interface{}) {
	l.mu.Lock()
	min := l.level
	l.mu.Unlock()
	if level < min {
		return
	}
	l.logger.Printf(strUpper(level)+": "+format, v...)
}

func strUpper(l Level) string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Ensure interface compliance.
var _ Logger = (*DefaultLogger)(nil)

// Nop is a Logger that discards everything. Useful as a default when a
// component does not care about diagnostics.
type Nop struct{}

func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}
func (Nop) SetLevel(Level)               {}

var _ Logger = Nop{}
