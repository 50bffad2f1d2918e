package logger

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/handler"
)

// osExit is a variable to allow overriding os.Exit in tests
var osExit = os.Exit

// CallerKey is the field key used for caller information
const CallerKey = "caller"

// Logger is the main logging interface (immutable)
type Logger struct {
	handler       handler.Handler
	level         core.Level
	fields        []core.Field
	includeCaller bool
	callerSkip    int
	recycleEntry  bool
}

// Builder provides a fluent API for building Logger instances
type Builder struct {
	handler       handler.Handler
	level         core.Level
	fields        []core.Field
	includeCaller bool
	callerSkip    int
	recycleEntry  bool
}

// NewBuilder creates a new logger builder
func NewBuilder() *Builder {
	return &Builder{
		level:      core.InfoLevel, // Default level
		callerSkip: 3,              // Default skip for getCaller
	}
}

// WithHandler sets the handler
func (b *Builder) WithHandler(h handler.Handler) *Builder {
	b.handler = h
	// Pre-compute recycleEntry to avoid interface assertion in Build()
	if rc, ok := h.(interface{ CanRecycleEntry() bool }); ok {
		b.recycleEntry = rc.CanRecycleEntry()
	} else {
		b.recycleEntry = false
	}
	return b
}

// WithLevel sets the log level
func (b *Builder) WithLevel(level core.Level) *Builder {
	b.level = level
	return b
}

// WithFields adds default fields to all log entries
func (b *Builder) WithFields(fields ...core.Field) *Builder {
	b.fields = append(b.fields, fields...)
	return b
}

// WithCaller adds a "caller" field (file:line) to every entry
func (b *Builder) WithCaller(enabled bool) *Builder {
	b.includeCaller = enabled
	return b
}

// Build creates the Logger instance
func (b *Builder) Build() *Logger {
	return &Logger{
		handler:       b.handler,
		level:         b.level,
		fields:        b.fields,
		includeCaller: b.includeCaller,
		callerSkip:    b.callerSkip,
		recycleEntry:  b.recycleEntry,
	}
}

// With creates a new Logger with additional fields (immutable operation)
func (l *Logger) With(fields ...core.Field) *Logger {
	newFields := make([]core.Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &Logger{
		handler:       l.handler,
		level:         l.level,
		fields:        newFields,
		includeCaller: l.includeCaller,
		callerSkip:    l.callerSkip,
		recycleEntry:  l.recycleEntry,
	}
}

// Enabled reports whether entries at level are handled
func (l *Logger) Enabled(level core.Level) bool {
	return level >= l.level && l.handler != nil
}

// Log logs a message template at the specified level
func (l *Logger) Log(level core.Level, template string, fields ...core.Field) {
	// Level check optimization - exit early BEFORE any allocations
	if level < l.level {
		return
	}

	l.log(level, nil, template, fields)
}

// log is the internal logging method that takes a pre-allocated slice
func (l *Logger) log(level core.Level, err error, template string, fields []core.Field) {
	// Handler check - exit if no handler (avoid any work)
	if l.handler == nil {
		return
	}

	// Get entry from pool AFTER level check
	entry := core.GetEntry()
	entry.Time = time.Now()
	entry.Level = level
	entry.Message = template
	entry.Err = err

	// Add logger's default fields
	if len(l.fields) > 0 {
		entry.Fields = append(entry.Fields, l.fields...)
	}

	// Add provided fields
	if len(fields) > 0 {
		entry.Fields = append(entry.Fields, fields...)
	}

	if l.includeCaller {
		entry.Caller = core.GetCaller(l.callerSkip)
		if entry.Caller.Defined {
			entry.Fields = append(entry.Fields, core.Field{
				Key:  CallerKey,
				Type: core.StringType,
				Str:  entry.Caller.ShortFile + ":" + strconv.Itoa(entry.Caller.Line),
			})
		}
	}

	if err := l.handler.Handle(entry); err != nil {
		return
	}

	// Return entry to pool if handler supports it
	if l.recycleEntry {
		core.PutEntry(entry)
	}
}

// Verbose logs a verbose message
func (l *Logger) Verbose(template string, fields ...core.Field) {
	if core.VerboseLevel < l.level {
		return
	}
	l.log(core.VerboseLevel, nil, template, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(template string, fields ...core.Field) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, nil, template, fields)
}

// Info logs an info message
func (l *Logger) Info(template string, fields ...core.Field) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, nil, template, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(template string, fields ...core.Field) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, nil, template, fields)
}

// Error logs an error message
func (l *Logger) Error(template string, fields ...core.Field) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, nil, template, fields)
}

// ErrorErr logs an error message with err attached to the entry. The
// error is written as meta.Exception, including its stack trace when it
// carries one.
func (l *Logger) ErrorErr(err error, template string, fields ...core.Field) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, err, template, fields)
}

// Fatal logs a fatal message, flushes buffered handlers and exits the
// program with os.Exit(1)
func (l *Logger) Fatal(template string, fields ...core.Field) {
	l.log(core.FatalLevel, nil, template, fields)
	l.exit()
}

// Verbosef logs a verbose message with formatting
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if core.VerboseLevel < l.level {
		return
	}
	l.log(core.VerboseLevel, nil, fmt.Sprintf(format, args...), nil)
}

// Debugf logs a debug message with formatting
func (l *Logger) Debugf(format string, args ...interface{}) {
	if core.DebugLevel < l.level {
		return
	}
	l.log(core.DebugLevel, nil, fmt.Sprintf(format, args...), nil)
}

// Infof logs an info message with formatting
func (l *Logger) Infof(format string, args ...interface{}) {
	if core.InfoLevel < l.level {
		return
	}
	l.log(core.InfoLevel, nil, fmt.Sprintf(format, args...), nil)
}

// Warnf logs a warning message with formatting
func (l *Logger) Warnf(format string, args ...interface{}) {
	if core.WarnLevel < l.level {
		return
	}
	l.log(core.WarnLevel, nil, fmt.Sprintf(format, args...), nil)
}

// Errorf logs an error message with formatting
func (l *Logger) Errorf(format string, args ...interface{}) {
	if core.ErrorLevel < l.level {
		return
	}
	l.log(core.ErrorLevel, nil, fmt.Sprintf(format, args...), nil)
}

// Fatalf logs a fatal message with formatting and exits the program with os.Exit(1)
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(core.FatalLevel, nil, fmt.Sprintf(format, args...), nil)
	l.exit()
}

func (l *Logger) exit() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = l.Flush(ctx)
	osExit(1)
}

// Flush waits for buffered handlers to deliver what they hold
func (l *Logger) Flush(ctx context.Context) error {
	if f, ok := l.handler.(handler.Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}

// Close closes the logger's handler
func (l *Logger) Close() error {
	if l.handler != nil {
		return l.handler.Close()
	}
	return nil
}
