package logger

import (
	"context"
	"sync"

	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/handler"
)

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

func init() {
	// Initialize default logger writing LogDNA lines to stdout
	h := handler.NewWriterHandler(handler.WriterConfig{})

	defaultLogger = NewBuilder().
		WithHandler(h).
		WithLevel(core.InfoLevel).
		Build()
}

// Default returns the default logger
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Package-level convenience functions using the default logger

// Verbose logs a verbose message using the default logger
func Verbose(template string, fields ...core.Field) {
	Default().Verbose(template, fields...)
}

// Debug logs a debug message using the default logger
func Debug(template string, fields ...core.Field) {
	Default().Debug(template, fields...)
}

// Info logs an info message using the default logger
func Info(template string, fields ...core.Field) {
	Default().Info(template, fields...)
}

// Warn logs a warning message using the default logger
func Warn(template string, fields ...core.Field) {
	Default().Warn(template, fields...)
}

// Error logs an error message using the default logger
func Error(template string, fields ...core.Field) {
	Default().Error(template, fields...)
}

// ErrorErr logs an error message with an attached error using the default logger
func ErrorErr(err error, template string, fields ...core.Field) {
	Default().ErrorErr(err, template, fields...)
}

// Fatal logs a fatal message using the default logger and exits the program
func Fatal(template string, fields ...core.Field) {
	Default().Fatal(template, fields...)
}

// Debugf logs a formatted debug message using the default logger
func Debugf(format string, args ...interface{}) {
	Default().Debugf(format, args...)
}

// Infof logs a formatted info message using the default logger
func Infof(format string, args ...interface{}) {
	Default().Infof(format, args...)
}

// Warnf logs a formatted warning message using the default logger
func Warnf(format string, args ...interface{}) {
	Default().Warnf(format, args...)
}

// Errorf logs a formatted error message using the default logger
func Errorf(format string, args ...interface{}) {
	Default().Errorf(format, args...)
}

// Fatalf logs a formatted fatal message using the default logger and exits the program
func Fatalf(format string, args ...interface{}) {
	Default().Fatalf(format, args...)
}

// With creates a new logger with additional fields
func With(fields ...core.Field) *Logger {
	return Default().With(fields...)
}

// Flush flushes the default logger's handler
func Flush(ctx context.Context) error {
	return Default().Flush(ctx)
}
