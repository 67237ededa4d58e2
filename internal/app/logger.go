package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logger interface shared by the services
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// LogLevel orders log severities
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// LevelLogger writes prefixed lines at or above a minimum level
type LevelLogger struct {
	mu       sync.RWMutex
	minLevel LogLevel
	output   io.Writer
}

// NewLogger creates a new logger with the specified minimum level
func NewLogger(minLevel LogLevel, output io.Writer) *LevelLogger {
	if output == nil {
		output = os.Stderr
	}
	return &LevelLogger{
		minLevel: minLevel,
		output:   output,
	}
}

// SetLevel changes the minimum log level
func (l *LevelLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// GetLevel returns the current minimum log level
func (l *LevelLogger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.minLevel
}

func (l *LevelLogger) Debug(format string, args ...interface{}) {
	l.log(LogLevelDebug, "DEBUG", format, args...)
}

func (l *LevelLogger) Info(format string, args ...interface{}) {
	l.log(LogLevelInfo, "INFO", format, args...)
}

func (l *LevelLogger) Warn(format string, args ...interface{}) {
	l.log(LogLevelWarn, "WARN", format, args...)
}

func (l *LevelLogger) Error(format string, args ...interface{}) {
	l.log(LogLevelError, "ERROR", format, args...)
}

func (l *LevelLogger) log(level LogLevel, prefix string, format string, args ...interface{}) {
	l.mu.RLock()
	minLevel := l.minLevel
	output := l.output
	l.mu.RUnlock()

	if level >= minLevel {
		fmt.Fprintf(output, "%s: %s\n", prefix, fmt.Sprintf(format, args...))
	}
}

// ParseLogLevel converts a level name; unknown names map to info
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// NopLogger returns a logger that drops all messages
func NopLogger() Logger {
	return nopLogger{}
}

var (
	loggerMu     sync.RWMutex
	globalLogger Logger = NewLogger(LogLevelInfo, os.Stderr)
)

// SetLogger sets the global logger
func SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	globalLogger = logger
}

// GetLogger returns the current logger
func GetLogger() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}
