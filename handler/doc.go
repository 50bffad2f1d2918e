// Package handler provides the Handler interface and the building blocks
// for dispatching log entries to their destinations.
//
// Handlers that queue work apply a per-level OverflowPolicy when their
// queue is full: DropNewest (default for Verbose through Warning),
// DropOldest, or Block with a configurable timeout (default for Error
// and Fatal). This keeps low-priority logs from ever stalling the
// application while errors are given a chance to get through. Queue
// implements that logic once for every queued handler.
//
// Built-in handlers:
//
//   - WriterHandler writes formatted lines synchronously to any io.Writer.
//   - MultiHandler fans out a single entry to multiple child handlers.
//   - SlogHandler adapts the Handler interface to log/slog.Handler.
//
// The batching LogDNA handler lives in the httphandler subpackage.
//
// Handlers track dropped, blocked and processed counts via the Stats
// type, which can be queried at runtime for monitoring.
package handler
