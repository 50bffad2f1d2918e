package formatter

import (
	"bytes"
	"io"
	"sync"

	"github.com/philipp01105/nlog-logdna/core"
)

// Formatter defines the interface for log formatters
type Formatter interface {
	// Format formats a log entry into one newline-terminated line. It
	// returns nil when the entry could not be formatted; such entries are
	// reported to the diagnostic channel and dropped.
	Format(entry *core.Entry) []byte
}

// WriterFormatter is an optional interface that formatters can implement
// to write directly to a writer without intermediate byte slice allocation.
type WriterFormatter interface {
	// FormatTo formats a log entry and writes it directly to the writer.
	// Only errors returned by the writer are propagated.
	FormatTo(entry *core.Entry, w io.Writer) error
}

// BufferFormatter is an optional interface that formatters can implement
// to format directly into a caller-provided buffer, avoiding internal
// buffer pool overhead.
type BufferFormatter interface {
	// FormatEntry appends the formatted entry to buf and reports whether
	// anything was appended. On failure buf is left unchanged.
	FormatEntry(entry *core.Entry, buf *bytes.Buffer) bool
}

// BatchFormatter joins formatted lines into a single request body
type BatchFormatter interface {
	// FormatBatch writes the envelope for lines to w. It writes nothing
	// when there is nothing to send.
	FormatBatch(lines [][]byte, w io.Writer) error
}

// bufferPool is a pool of bytes.Buffer to reduce allocations
var bufferPool = &sync.Pool{
	New: func() interface{} {
		b := new(bytes.Buffer)
		b.Grow(256)
		return b
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 64*1024 { // Don't keep very large buffers
		return
	}
	bufferPool.Put(buf)
}
