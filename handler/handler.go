package handler

import (
	"context"

	"github.com/philipp01105/nlog-logdna/core"
)

// Handler defines the interface for log handlers
type Handler interface {
	// Handle processes a log entry
	Handle(entry *core.Entry) error

	// Close closes the handler and releases resources
	Close() error
}

// Flusher is implemented by handlers that buffer entries. Flush returns
// once everything handled so far has been written or delivered.
type Flusher interface {
	Flush(ctx context.Context) error
}

// StatsProvider is implemented by handlers that track delivery statistics
type StatsProvider interface {
	Stats() Snapshot
}
