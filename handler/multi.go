package handler

import (
	"context"

	"go.uber.org/multierr"

	"github.com/philipp01105/nlog-logdna/core"
)

// MultiHandler sends log entries to multiple handlers
type MultiHandler struct {
	handlers     []Handler
	recycleEntry bool // true when every child supports entry recycling
}

// NewMultiHandler creates a new multi-handler
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	m := &MultiHandler{
		handlers:     handlers,
		recycleEntry: true,
	}
	for _, h := range handlers {
		rc, ok := h.(interface{ CanRecycleEntry() bool })
		if !ok || !rc.CanRecycleEntry() {
			m.recycleEntry = false
		}
	}
	return m
}

// Handle processes a log entry by sending it to all handlers. Every
// handler sees the entry even when an earlier one fails; the failures
// are combined.
func (h *MultiHandler) Handle(entry *core.Entry) error {
	var err error
	for _, handler := range h.handlers {
		err = multierr.Append(err, handler.Handle(entry))
	}
	return err
}

// CanRecycleEntry returns true if the caller can recycle the entry after Handle returns.
// This is safe when all child handlers are done with the entry once Handle returns.
func (h *MultiHandler) CanRecycleEntry() bool {
	return h.recycleEntry
}

// Flush flushes every child that buffers entries
func (h *MultiHandler) Flush(ctx context.Context) error {
	var err error
	for _, handler := range h.handlers {
		if f, ok := handler.(Flusher); ok {
			err = multierr.Append(err, f.Flush(ctx))
		}
	}
	return err
}

// Close closes all handlers
func (h *MultiHandler) Close() error {
	var err error
	for _, handler := range h.handlers {
		err = multierr.Append(err, handler.Close())
	}
	return err
}
