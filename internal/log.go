package internal

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// LogLevel orders logging verbosity from quietest to noisiest.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// ParseLogLevel maps a LOG_LEVEL string to its level. Unknown or empty
// strings fall back to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError
	case "WARN", "WARNING":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// Logger is a leveled printf logger with an optional subsystem tag.
type Logger struct {
	level LogLevel
	name  string
	out   *log.Logger
}

// NewLogger creates a logger writing to stderr at the given level.
func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

// NewDefaultLogger creates a logger leveled by the LOG_LEVEL environment
// variable.
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")))
}

// Named returns a copy of the logger whose lines carry a subsystem tag,
// e.g. "[INFO] [api] ...".
func (l *Logger) Named(name string) *Logger {
	copied := *l
	copied.name = name
	return &copied
}

func (l *Logger) printf(level LogLevel, tag, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.name != "" {
		l.out.Printf("[%s] [%s] %s", tag, l.name, msg)
		return
	}
	l.out.Printf("[%s] %s", tag, msg)
}

// Error logs failures that abort the current operation.
func (l *Logger) Error(format string, args ...interface{}) {
	l.printf(LogLevelError, "ERROR", format, args...)
}

// Warn logs degraded but recovered conditions.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.printf(LogLevelWarn, "WARN", format, args...)
}

// Info logs normal operational events.
func (l *Logger) Info(format string, args ...interface{}) {
	l.printf(LogLevelInfo, "INFO", format, args...)
}

// Debug logs high-volume diagnostic detail.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.printf(LogLevelDebug, "DEBUG", format, args...)
}
