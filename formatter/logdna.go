package formatter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/selflog"
)

// DefaultApp is the app name used when none is configured
const DefaultApp = "unknown"

// exceptionKey is the meta member that carries Entry.Err
const exceptionKey = "Exception"

// LogDNAConfig holds the LogDNA formatter configuration
type LogDNAConfig struct {
	// App is the application name (default: "unknown")
	App string
	// Env is the environment name; the env member is omitted when empty
	Env string
	// Reporter receives entries that could not be formatted (default: selflog.Default())
	Reporter selflog.Reporter
}

// LogDNAFormatter formats log entries as LogDNA ingest lines:
//
//	{"timestamp":"…","level":"…","app":"…","env":"…","line":"…","meta":{…}}
//
// An attached error is written as meta.Exception, ahead of the entry's
// fields. The formatter is immutable and safe for concurrent use.
type LogDNAFormatter struct {
	app      string
	env      string
	reporter selflog.Reporter
}

// NewLogDNAFormatter creates a new LogDNA formatter
func NewLogDNAFormatter(cfg LogDNAConfig) *LogDNAFormatter {
	if cfg.App == "" {
		cfg.App = DefaultApp
	}
	return &LogDNAFormatter{
		app:      cfg.App,
		env:      cfg.Env,
		reporter: selflog.OrDefault(cfg.Reporter),
	}
}

// App returns the configured application name
func (f *LogDNAFormatter) App() string { return f.app }

// Env returns the configured environment name
func (f *LogDNAFormatter) Env() string { return f.env }

// Format formats an entry as a single JSON line
func (f *LogDNAFormatter) Format(entry *core.Entry) []byte {
	buf := getBuffer()
	defer putBuffer(buf)

	if !f.FormatEntry(entry, buf) {
		return nil
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result
}

// FormatTo formats an entry and writes it directly to the writer
func (f *LogDNAFormatter) FormatTo(entry *core.Entry, w io.Writer) error {
	buf := getBuffer()
	defer putBuffer(buf)

	if !f.FormatEntry(entry, buf) {
		return nil
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// FormatEntry formats an entry into the given buffer (implements BufferFormatter).
// Entries that fail to format are reported and leave buf untouched.
func (f *LogDNAFormatter) FormatEntry(entry *core.Entry, buf *bytes.Buffer) bool {
	if entry == nil {
		return false
	}
	start := buf.Len()
	if err := f.formatLine(entry, buf); err != nil {
		buf.Truncate(start)
		f.reporter.Dropped(entry.Time, entry.Message, err)
		return false
	}
	return true
}

// formatLine writes the line, converting panics raised by user values
// (MarshalJSON, String) into errors.
func (f *LogDNAFormatter) formatLine(entry *core.Entry, buf *bytes.Buffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic while formatting: %v", r)
		}
	}()

	buf.WriteString(`{"timestamp":"`)
	buf.Write(entry.Time.AppendFormat(buf.AvailableBuffer(), core.RoundTripLayout))

	buf.WriteString(`","level":"`)
	buf.WriteString(entry.Level.String())

	buf.WriteString(`","app":`)
	appendQuoted(buf, f.app)

	if f.env != "" {
		buf.WriteString(`,"env":`)
		appendQuoted(buf, f.env)
	}

	buf.WriteString(`,"line":`)
	appendQuoted(buf, core.RenderTemplate(entry.Message, entry.Fields))

	if err := writeMeta(entry, buf); err != nil {
		return err
	}

	buf.WriteString("}\n")
	return nil
}

// writeMeta writes the meta object; it is omitted when the entry has
// neither fields nor an error.
func writeMeta(entry *core.Entry, buf *bytes.Buffer) error {
	if len(entry.Fields) == 0 && entry.Err == nil {
		return nil
	}

	buf.WriteString(`,"meta":{`)

	fields := uniqueFields(entry.Fields)
	if entry.Err != nil {
		buf.WriteString(`"` + exceptionKey + `":`)
		appendQuoted(buf, fmt.Sprintf("%+v", entry.Err))
		fields = withoutKey(fields, exceptionKey)
		if len(fields) > 0 {
			buf.WriteByte(',')
		}
	}

	if err := appendJSONMembers(buf, fields, 0); err != nil {
		return err
	}

	buf.WriteByte('}')
	return nil
}

// withoutKey drops fields named key, copying only when one is present
func withoutKey(fields []core.Field, key string) []core.Field {
	for i := range fields {
		if fields[i].Key != key {
			continue
		}
		out := make([]core.Field, 0, len(fields)-1)
		out = append(out, fields[:i]...)
		for _, f := range fields[i+1:] {
			if f.Key != key {
				out = append(out, f)
			}
		}
		return out
	}
	return fields
}
