package handler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/formatter"
)

// recordingReporter captures diagnostics for assertions
type recordingReporter struct {
	mu       sync.Mutex
	dropped  []string
	warnings []string
}

func (r *recordingReporter) Dropped(_ time.Time, template string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, template)
}

func (r *recordingReporter) Warn(msg string, _ ...zap.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
}

var testTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testFormatter(rep *recordingReporter) *formatter.LogDNAFormatter {
	return formatter.NewLogDNAFormatter(formatter.LogDNAConfig{App: "svc", Reporter: rep})
}

func testEntry(level core.Level, msg string, fields ...core.Field) *core.Entry {
	return &core.Entry{Time: testTime, Level: level, Message: msg, Fields: fields}
}

// recordingHandler records the messages it receives
type recordingHandler struct {
	mu        sync.Mutex
	messages  []string
	handleErr error
	closeErr  error
	closed    bool
	flushed   int
}

func (h *recordingHandler) Handle(entry *core.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, entry.Message)
	return h.handleErr
}

func (h *recordingHandler) Close() error {
	h.closed = true
	return h.closeErr
}
