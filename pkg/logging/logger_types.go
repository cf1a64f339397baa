package logging

import (
	"io"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

const (
	// DebugLevel carries per-request search details; off in production.
	DebugLevel Level = iota
	// InfoLevel is the default.
	InfoLevel
	// WarnLevel marks repaired or degraded conditions.
	WarnLevel
	// ErrorLevel marks failures that reached a caller or aborted a reload.
	ErrorLevel
)

// String returns the upper-case name of the level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level. Unknown names map to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is a structured key/value pair.
type Field struct {
	Key   string
	Value any
}

// Logger is the structured logger used across the service.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger that always includes fields.
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// JSONLogger writes one JSON object per line. Child loggers created by With
// share the parent's writer lock so lines never interleave.
type JSONLogger struct {
	writer io.Writer
	level  *levelHolder
	fields []Field
	mu     *sync.Mutex
}

type levelHolder struct {
	mu    sync.RWMutex
	level Level
}

// LogEntry is the JSON shape of a single line.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NopLogger discards everything. Tests use it.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (n NopLogger) With(fields ...Field) Logger     { return n }
func (NopLogger) SetLevel(level Level)              {}
func (NopLogger) GetLevel() Level                   { return InfoLevel }

// NewNopLogger returns a logger that discards all output.
func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation logs the duration of an operation when it ends.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}
