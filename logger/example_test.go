package logger_test

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/philipp01105/nlog-logdna/formatter"
	"github.com/philipp01105/nlog-logdna/handler"
	"github.com/philipp01105/nlog-logdna/handler/httphandler"
	"github.com/philipp01105/nlog-logdna/logger"
)

// Use the package-level default logger for quick, no-setup logging.
func Example() {
	logger.Info("Application started")
	logger.Info("User {username} logged in",
		logger.String("username", "alice"),
		logger.Int("user_id", 123),
	)
}

// Create a custom Logger with the Builder pattern.
func ExampleNewBuilder() {
	h := handler.NewWriterHandler(handler.WriterConfig{
		Writer: io.Discard,
		Formatter: formatter.NewLogDNAFormatter(formatter.LogDNAConfig{
			App: "api",
			Env: "production",
		}),
	})

	log := logger.NewBuilder().
		WithHandler(h).
		WithLevel(logger.DebugLevel).
		WithCaller(true).
		WithFields(logger.String("service", "api")).
		Build()

	log.Info("listening on {port}", logger.Int("port", 8080))
	log.Close()
}

// Use With to create a child logger with persistent context fields.
func ExampleLogger_With() {
	h := handler.NewWriterHandler(handler.WriterConfig{Writer: io.Discard})

	log := logger.NewBuilder().
		WithHandler(h).
		Build()

	reqLog := log.With(
		logger.String("request_id", "req-12345"),
		logger.String("method", "GET"),
	)

	reqLog.Info("Processing request {path}", logger.String("path", "/api/users"))
	reqLog.Info("Request completed", logger.Int("status", 200))
	log.Close()
}

// Ship entries to Mezmo in batches.
func ExampleLogger_ErrorErr() {
	h, err := httphandler.New(httphandler.Config{
		APIKey:  "ingestion-key",
		AppName: "billing",
		Tags:    "eu,blue",
		Period:  2 * time.Second,
	})
	if err != nil {
		panic(err)
	}

	log := logger.NewBuilder().
		WithHandler(h).
		Build()
	defer log.Close()

	log.ErrorErr(errors.New("card declined"), "charge {charge_id} failed",
		logger.String("charge_id", "ch_42"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = log.Flush(ctx)
}
