package internal

import (
	"log"
	"os"
	"strings"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

var levelNames = map[LogLevel]string{
	LogLevelError: "ERROR",
	LogLevelWarn:  "WARN",
	LogLevelInfo:  "INFO",
	LogLevelDebug: "DEBUG",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// ParseLevel reads a level name case-insensitively. Unknown names fall back
// to info and report false.
func ParseLevel(s string) (LogLevel, bool) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for level, name := range levelNames {
		if name == upper {
			return level, true
		}
	}
	return LogLevelInfo, false
}

// Logger filters component log lines by level. Lines keep the
// "[Component] message" shape used across the codebase.
type Logger struct {
	level     LogLevel
	component string
}

// NewLogger creates a logger for one component
func NewLogger(level LogLevel, component string) *Logger {
	return &Logger{level: level, component: component}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL environment variable
func NewDefaultLogger(component string) *Logger {
	level, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
	return NewLogger(level, component)
}

// For returns a logger for another component at the same level
func (l *Logger) For(component string) *Logger {
	return NewLogger(l.level, component)
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	prefix := "[" + l.component + "] "
	if level != LogLevelInfo {
		prefix += level.String() + " "
	}
	log.Printf(prefix+format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) { l.logf(LogLevelError, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(LogLevelWarn, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(LogLevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.logf(LogLevelDebug, format, args...) }

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}
