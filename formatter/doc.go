// Package formatter serializes log entries for the LogDNA ingest API.
//
// LogDNAFormatter turns one core.Entry into one newline-terminated JSON
// line with a fixed member order: timestamp, level, app, env (only when
// configured), line (the rendered message template) and meta (only when
// the entry carries fields or an error). LinesBatchFormatter joins such
// lines into the {"lines":[…]} request body.
//
// Formatting never fails from the caller's point of view. An entry whose
// properties cannot be serialized is dropped and reported to the
// selflog.Reporter the formatter was built with; Format returns nil and
// FormatTo writes nothing. Only errors from the destination writer are
// returned.
//
// Both formatters are immutable after construction and safe for
// concurrent use. They format into pooled bytes.Buffers; buffers larger
// than 64 KiB are not returned to the pool to prevent a single large
// line from permanently inflating memory usage.
package formatter
