package logger

import (
	"io"
	"testing"

	"github.com/philipp01105/nlog-logdna/handler"
)

func discardLogger(level Level) *Logger {
	h := handler.NewWriterHandler(handler.WriterConfig{Writer: io.Discard})
	return NewBuilder().
		WithHandler(h).
		WithLevel(level).
		Build()
}

func BenchmarkLogger_LevelCheck(b *testing.B) {
	logger := discardLogger(InfoLevel)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Should exit early due to level check
		logger.Debug("debug message", String("key", "value"))
	}
}

// BenchmarkInfoNoFields benchmarks Info() with no fields using a discard writer.
func BenchmarkInfoNoFields(b *testing.B) {
	logger := discardLogger(InfoLevel)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("test message")
	}
}

func BenchmarkInfoTemplate(b *testing.B) {
	logger := discardLogger(InfoLevel)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("user {user} has {count} items",
			String("user", "alice"),
			Int("count", 42),
		)
	}
}

func BenchmarkInfoWithFields(b *testing.B) {
	logger := discardLogger(InfoLevel)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("test message",
			String("str", "value"),
			Int("int", 42),
			Bool("bool", true),
			Float64("float", 3.14),
			Object("http", String("method", "GET"), Int("status", 200)),
		)
	}
}

func BenchmarkInfoParallel(b *testing.B) {
	logger := discardLogger(InfoLevel)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			logger.Info("parallel message", String("key", "value"))
		}
	})
}
