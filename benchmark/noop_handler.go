// Package benchmark compares the cost of producing a LogDNA line with
// nlog-logdna against other structured loggers writing JSON.
package benchmark

import (
	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/handler"
)

// noopHandler discards entries without formatting them, isolating the
// logger's own overhead
type noopHandler struct{}

func newNoopHandler() handler.Handler {
	return &noopHandler{}
}

func (h *noopHandler) Handle(e *core.Entry) error {
	_ = len(e.Message)
	return nil
}

func (h *noopHandler) CanRecycleEntry() bool { return true }

func (h *noopHandler) Close() error {
	return nil
}
