package handler

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/formatter"
)

// WriterHandler formats entries and writes them synchronously to an
// io.Writer, one line per entry.
type WriterHandler struct {
	writer          io.Writer
	formatter       formatter.Formatter
	bufferFormatter formatter.BufferFormatter
	minLevel        core.Level
	stats           *Stats
	mu              sync.Mutex // protects buf and writer
	buf             bytes.Buffer
}

// WriterConfig holds configuration for the writer handler
type WriterConfig struct {
	// Writer to write to (default: os.Stdout)
	Writer io.Writer
	// Formatter to use (default: LogDNAFormatter with default settings)
	Formatter formatter.Formatter
	// MinLevel drops entries below this level (default: VerboseLevel)
	MinLevel core.Level
}

// NewWriterHandler creates a new writer handler
func NewWriterHandler(cfg WriterConfig) *WriterHandler {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if cfg.Formatter == nil {
		cfg.Formatter = formatter.NewLogDNAFormatter(formatter.LogDNAConfig{})
	}

	h := &WriterHandler{
		writer:    cfg.Writer,
		formatter: cfg.Formatter,
		minLevel:  cfg.MinLevel,
		stats:     NewStats(),
	}
	// Cache BufferFormatter to format into the handler-owned buffer
	h.bufferFormatter, _ = cfg.Formatter.(formatter.BufferFormatter)
	return h
}

// Handle formats and writes an entry
func (h *WriterHandler) Handle(entry *core.Entry) error {
	if entry == nil || entry.Level < h.minLevel {
		return nil
	}

	if h.bufferFormatter != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.buf.Reset()
		if !h.bufferFormatter.FormatEntry(entry, &h.buf) {
			h.stats.IncrementUnformattable()
			return nil
		}
		return h.writeLocked(h.buf.Bytes())
	}

	data := h.formatter.Format(entry)
	if data == nil {
		h.stats.IncrementUnformattable()
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writeLocked(data)
}

func (h *WriterHandler) writeLocked(data []byte) error {
	if _, err := h.writer.Write(data); err != nil {
		return err
	}
	h.stats.IncrementProcessed()
	return nil
}

// CanRecycleEntry returns true: the entry is fully consumed when Handle returns
func (h *WriterHandler) CanRecycleEntry() bool {
	return true
}

// Stats returns a snapshot of the current statistics
func (h *WriterHandler) Stats() Snapshot {
	return h.stats.GetSnapshot()
}

// Close closes the underlying writer when it is an io.Closer other than
// stdout or stderr
func (h *WriterHandler) Close() error {
	if h.writer == os.Stdout || h.writer == os.Stderr {
		return nil
	}
	if c, ok := h.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
