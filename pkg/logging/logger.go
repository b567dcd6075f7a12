package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(writer io.Writer, level Level, opts ...Option) *JSONLogger {
	l := &JSONLogger{
		writer: writer,
		clock:  clockz.RealClock,
		level:  level,
		fields: make([]Field, 0),
		mu:     &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// log is the internal logging method
func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	// Build field map
	fieldMap := make(map[string]any)

	// Add pre-set fields
	for _, f := range l.fields {
		fieldMap[f.Key] = f.Value
	}

	// Add new fields
	for _, f := range fields {
		fieldMap[f.Key] = f.Value
	}

	entry := LogEntry{
		Time:    l.clock.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}

	// Only include fields if there are any
	if len(fieldMap) > 0 {
		entry.Fields = fieldMap
	}

	data, err := json.Marshal(entry)
	if err != nil {
		// Fallback to simple text logging if JSON marshal fails
		fmt.Fprintf(l.writer, "[ERROR] Failed to marshal log entry: %v\n", err)
		return
	}

	data = append(data, '\n')
	l.writer.Write(data)
}

// Debug logs a debug-level message
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info-level message
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning-level message
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error-level message
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With creates a child logger with the given fields pre-set.
// The child shares the parent's writer lock but has its own level.
func (l *JSONLogger) With(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &JSONLogger{
		writer: l.writer,
		clock:  l.clock,
		level:  l.level,
		fields: newFields,
		mu:     l.mu,
	}
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Global default logger
var (
	defaultLogger Logger
	defaultMu     sync.Mutex
)

// LevelFromEnv returns the level named by LOG_LEVEL, or fallback when unset.
func LevelFromEnv(fallback Level) Level {
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		return ParseLevel(levelStr)
	}
	return fallback
}

// DefaultLogger returns the global default logger. Unless replaced it writes
// to stderr, leaving stdout free for command output such as change-set
// streams.
func DefaultLogger() Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewJSONLogger(os.Stderr, LevelFromEnv(InfoLevel))
	}
	return defaultLogger
}

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// StartTimer begins timing an operation against the given clock
func StartTimer(logger Logger, clock clockz.Clock, msg string, fields ...Field) *TimedOperation {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &TimedOperation{
		logger: logger,
		clock:  clock,
		msg:    msg,
		start:  clock.Now(),
		fields: fields,
	}
}

// Elapsed returns the time since the operation started
func (t *TimedOperation) Elapsed() time.Duration {
	return t.clock.Since(t.start)
}

// End logs the operation at INFO with its duration
func (t *TimedOperation) End(extra ...Field) {
	t.EndWithLevel(InfoLevel, extra...)
}

// EndWithLevel logs the operation at the specified level with its duration
func (t *TimedOperation) EndWithLevel(level Level, extra ...Field) {
	fields := make([]Field, 0, len(t.fields)+len(extra)+1)
	fields = append(fields, t.fields...)
	fields = append(fields, extra...)
	fields = append(fields, Latency(t.Elapsed()))
	switch level {
	case DebugLevel:
		t.logger.Debug(t.msg, fields...)
	case InfoLevel:
		t.logger.Info(t.msg, fields...)
	case WarnLevel:
		t.logger.Warn(t.msg, fields...)
	case ErrorLevel:
		t.logger.Error(t.msg, fields...)
	}
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error) {
	t.EndWithLevel(ErrorLevel, Error(err))
}
