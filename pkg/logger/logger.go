package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger provides leveled logging plus emoji-tagged progress output for
// user-facing milestones. Safe for concurrent use by batch workers.
type Logger struct {
	level   LogLevel
	verbose bool
	quiet   bool
	mu      sync.Mutex
	out     io.Writer
}

// NewLogger creates a new logger with specified level and verbose mode
func NewLogger(level string, verbose bool) *Logger {
	return &Logger{
		level:   parseLogLevel(level),
		verbose: verbose,
		out:     os.Stdout,
	}
}

// SetOutput redirects log output, primarily for tests
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetQuiet suppresses progress output, leaving warnings and errors
func (l *Logger) SetQuiet(quiet bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiet = quiet
}

// Debug logs debug information (only in debug mode)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level <= LevelDebug {
		l.log("DEBUG", fmt.Sprintf(format, args...))
	}
}

// Info logs informational messages (only in verbose mode)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.verbose && l.level <= LevelInfo {
		l.log("INFO", fmt.Sprintf(format, args...))
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level <= LevelWarn {
		l.log("WARN", fmt.Sprintf(format, args...))
	}
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level <= LevelError {
		l.log("ERROR", fmt.Sprintf(format, args...))
	}
}

// ProgressAlways logs milestones that should be shown regardless of verbose mode
func (l *Logger) ProgressAlways(emoji, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quiet {
		return
	}
	fmt.Fprintf(l.out, "%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// Progress logs step-by-step progress details (only in verbose mode)
func (l *Logger) Progress(emoji, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.verbose || l.quiet {
		return
	}
	fmt.Fprintf(l.out, "%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// log outputs formatted log messages
func (l *Logger) log(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %s\n", level, message)
}

// parseLogLevel converts string level to LogLevel
func parseLogLevel(level string) LogLevel {
	switch level {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
