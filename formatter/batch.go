package formatter

import (
	"bytes"
	"io"
)

// LinesBatchFormatter wraps formatted lines in the LogDNA ingest
// envelope {"lines":[…]}. Lines are written verbatim apart from trimming
// surrounding whitespace; blank lines are skipped. When no line remains
// nothing is written, which tells the caller there is nothing to send.
type LinesBatchFormatter struct{}

// NewLinesBatchFormatter creates a new batch formatter
func NewLinesBatchFormatter() *LinesBatchFormatter {
	return &LinesBatchFormatter{}
}

// FormatBatch implements BatchFormatter
func (LinesBatchFormatter) FormatBatch(lines [][]byte, w io.Writer) error {
	buf := getBuffer()
	defer putBuffer(buf)

	AppendBatch(buf, lines)
	if buf.Len() == 0 {
		return nil
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// AppendBatch appends the envelope for lines to buf and returns the
// number of lines it contains.
func AppendBatch(buf *bytes.Buffer, lines [][]byte) int {
	n := 0
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if n == 0 {
			buf.WriteString(`{"lines":[`)
		} else {
			buf.WriteByte(',')
		}
		buf.Write(line)
		n++
	}
	if n > 0 {
		buf.WriteString("]}")
	}
	return n
}

// EnvelopeOverhead is the number of bytes the envelope adds around n lines
func EnvelopeOverhead(n int) int {
	if n == 0 {
		return 0
	}
	return len(`{"lines":[`) + len("]}") + n - 1
}
