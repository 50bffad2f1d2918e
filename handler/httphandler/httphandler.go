// Package httphandler provides a Handler that batches formatted entries
// and posts them to a LogDNA/Mezmo ingest endpoint.
package httphandler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/philipp01105/nlog-logdna/config"
	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/formatter"
	"github.com/philipp01105/nlog-logdna/handler"
	"github.com/philipp01105/nlog-logdna/ingest"
	"github.com/philipp01105/nlog-logdna/selflog"
)

// ErrClosed is returned by Handle and Flush after Close
var ErrClosed = errors.New("httphandler: handler is closed")

// Poster sends one request body to the ingest endpoint. *ingest.Client
// implements it.
type Poster interface {
	Post(ctx context.Context, uri string, body io.Reader) (*http.Response, error)
	Close() error
}

// Config holds configuration for the HTTP handler
type Config struct {
	// IngestURL is the endpoint base URL (default: ingest.DefaultURL)
	IngestURL string
	// APIKey is the ingestion key sent as the Basic credential. Required
	// unless Poster is set.
	APIKey string
	// AppName is written as "app" on every line (default: "unknown")
	AppName string
	// Env is written as "env" on every line when set
	Env string
	// Tags are appended to the ingest URL when set
	Tags string
	// Hostname is appended to the ingest URL (default: local host name)
	Hostname string
	// MinLevel drops entries below this level (default: VerboseLevel)
	MinLevel core.Level
	// BatchSizeLimitBytes caps the size of one request body (default: 5 MiB)
	BatchSizeLimitBytes int
	// BatchCountLimit caps the number of lines per request (default: 1000)
	BatchCountLimit int
	// Period is the interval between timed flushes (default: 5s)
	Period time.Duration
	// QueueSize is the capacity of the pending line queue (default: 10000)
	QueueSize int
	// OverflowPolicy defines per-level overflow behavior (default: uses DefaultLevelPolicy)
	OverflowPolicy map[core.Level]OverflowPolicy
	// BlockTimeout is the timeout for blocking overflow policy (default: 100ms)
	BlockTimeout time.Duration
	// DrainTimeout bounds the final drain and flush on Close (default: 5s)
	DrainTimeout time.Duration
	// Reporter receives drop and transport diagnostics (default: selflog.Default())
	Reporter selflog.Reporter
	// Poster replaces the ingest client built from APIKey. The handler
	// closes it on Close.
	Poster Poster
}

// OverflowPolicy is re-exported so callers configure the handler from
// one package
type OverflowPolicy = handler.OverflowPolicy

// FromConfig converts a loaded sink configuration. Defaults are applied
// to c first.
func FromConfig(c *config.Config) Config {
	c.ApplyDefaults()
	return Config{
		IngestURL:           c.IngestURL,
		APIKey:              c.APIKey,
		AppName:             c.AppName,
		Env:                 c.Env,
		Tags:                c.Tags,
		Hostname:            c.Hostname,
		MinLevel:            c.Level(),
		BatchSizeLimitBytes: c.BatchSizeLimitBytes,
		BatchCountLimit:     c.BatchCountLimit,
		Period:              c.Period,
		QueueSize:           c.QueueSize,
		DrainTimeout:        c.DrainTimeout,
	}
}

// Handler formats entries into LogDNA lines and ships them in batches
// from a single worker goroutine
type Handler struct {
	uri            string
	poster         Poster
	formatter      *formatter.LogDNAFormatter
	batchFormatter *formatter.LinesBatchFormatter
	reporter       selflog.Reporter
	minLevel       core.Level
	sizeLimit      int
	countLimit     int
	period         time.Duration
	drainTimeout   time.Duration

	queue    *handler.Queue[[]byte]
	stats    *handler.Stats
	flushReq chan chan struct{}
	closed   chan struct{}
	done     chan struct{}

	closeOnce sync.Once
	closeErr  error
	finalErr  error // written by the worker before done is closed
}

type batch struct {
	lines [][]byte
	size  int
}

// New validates cfg, builds the ingest URL and starts the worker
func New(cfg Config) (*Handler, error) {
	if cfg.Poster == nil && strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ingest.ErrMissingAPIKey
	}
	if cfg.IngestURL == "" {
		cfg.IngestURL = ingest.DefaultURL
	}
	if cfg.BatchSizeLimitBytes <= 0 {
		cfg.BatchSizeLimitBytes = config.DefaultBatchSizeLimitBytes
	}
	if cfg.BatchCountLimit <= 0 {
		cfg.BatchCountLimit = config.DefaultBatchCountLimit
	}
	if cfg.Period <= 0 {
		cfg.Period = config.DefaultPeriod
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = config.DefaultQueueSize
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = config.DefaultDrainTimeout
	}

	uri, err := ingest.BuildURL(cfg.IngestURL, cfg.Hostname, cfg.Tags)
	if err != nil {
		return nil, err
	}

	poster := cfg.Poster
	if poster == nil {
		client, err := ingest.NewClient(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		poster = client
	}

	reporter := selflog.OrDefault(cfg.Reporter)
	stats := handler.NewStats()
	h := &Handler{
		uri:    uri,
		poster: poster,
		formatter: formatter.NewLogDNAFormatter(formatter.LogDNAConfig{
			App:      cfg.AppName,
			Env:      cfg.Env,
			Reporter: reporter,
		}),
		batchFormatter: formatter.NewLinesBatchFormatter(),
		reporter:       reporter,
		minLevel:       cfg.MinLevel,
		sizeLimit:      cfg.BatchSizeLimitBytes,
		countLimit:     cfg.BatchCountLimit,
		period:         cfg.Period,
		drainTimeout:   cfg.DrainTimeout,
		queue:          handler.NewQueue[[]byte](cfg.QueueSize, cfg.OverflowPolicy, cfg.BlockTimeout, stats),
		stats:          stats,
		flushReq:       make(chan chan struct{}),
		closed:         make(chan struct{}),
		done:           make(chan struct{}),
	}

	go h.run()
	return h, nil
}

// URI returns the ingest URL requests are posted to
func (h *Handler) URI() string { return h.uri }

// Handle formats the entry and queues the resulting line. The entry is
// not retained.
func (h *Handler) Handle(entry *core.Entry) error {
	if entry == nil {
		return nil
	}
	select {
	case <-h.closed:
		return ErrClosed
	default:
	}

	if entry.Level < h.minLevel {
		return nil
	}

	line := h.formatter.Format(entry)
	if line == nil {
		h.stats.IncrementUnformattable()
		return nil
	}
	line = bytes.TrimSpace(line)

	if len(line)+formatter.EnvelopeOverhead(1) > h.sizeLimit {
		h.stats.IncrementDropped(entry.Level)
		h.reporter.Warn("log line exceeds the batch size limit and will be dropped",
			zap.Int("bytes", len(line)),
			zap.Int("limit", h.sizeLimit),
			zap.String("template", entry.Message))
		return nil
	}

	h.queue.Offer(entry.Level, line, h.closed)
	return nil
}

// CanRecycleEntry returns true: entries are formatted before Handle returns
func (h *Handler) CanRecycleEntry() bool {
	return true
}

// Stats returns a snapshot of the current statistics
func (h *Handler) Stats() handler.Snapshot {
	return h.stats.GetSnapshot()
}

// Flush sends everything queued so far and waits for the request to
// complete
func (h *Handler) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case h.flushReq <- ack:
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue within DrainTimeout, sends the final batch and
// closes the poster. Calling Close more than once returns the first result.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() {
		close(h.closed)
		<-h.done
		h.closeErr = multierr.Combine(h.finalErr, h.poster.Close())
	})
	return h.closeErr
}

// run is the worker loop
func (h *Handler) run() {
	defer close(h.done)

	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	ctx := context.Background()
	b := &batch{}
	for {
		select {
		case line := <-h.queue.C():
			h.add(ctx, b, line)
		case <-ticker.C:
			h.send(ctx, b)
		case ack := <-h.flushReq:
			for n := h.queue.Len(); n > 0; n-- {
				h.add(ctx, b, <-h.queue.C())
			}
			h.send(ctx, b)
			close(ack)
		case <-h.closed:
			h.finalErr = h.drain(b)
			return
		}
	}
}

// drain empties the queue and sends what is left, bounded by drainTimeout
func (h *Handler) drain(b *batch) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.drainTimeout)
	defer cancel()

	var err error
drainLoop:
	for {
		select {
		case line := <-h.queue.C():
			err = multierr.Append(err, h.add(ctx, b, line))
		case <-ctx.Done():
			break drainLoop
		default:
			break drainLoop
		}
	}
	return multierr.Append(err, h.send(ctx, b))
}

// add appends line to b, sending b first when the line would push it
// over the size limit and afterwards when the count limit is reached
func (h *Handler) add(ctx context.Context, b *batch, line []byte) error {
	var err error
	if len(b.lines) > 0 && b.size+len(line)+formatter.EnvelopeOverhead(len(b.lines)+1) > h.sizeLimit {
		err = h.send(ctx, b)
	}
	b.lines = append(b.lines, line)
	b.size += len(line)
	if len(b.lines) >= h.countLimit {
		err = multierr.Append(err, h.send(ctx, b))
	}
	return err
}

// send posts b and resets it. Failures are reported and counted, never
// retried.
func (h *Handler) send(ctx context.Context, b *batch) error {
	n := len(b.lines)
	if n == 0 {
		return nil
	}

	var body bytes.Buffer
	body.Grow(b.size + formatter.EnvelopeOverhead(n))
	err := h.batchFormatter.FormatBatch(b.lines, &body)
	clear(b.lines)
	b.lines = b.lines[:0]
	b.size = 0
	if err != nil {
		return h.failed(n, errors.Wrap(err, "httphandler: building batch"))
	}

	resp, err := h.poster.Post(ctx, h.uri, &body)
	if err != nil {
		return h.failed(n, errors.Wrap(err, "httphandler: posting batch"))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return h.failed(n, errors.Newf("httphandler: ingest endpoint returned %s", resp.Status))
	}

	h.stats.IncrementBatchesSent()
	h.stats.AddProcessed(n)
	return nil
}

func (h *Handler) failed(lines int, err error) error {
	h.stats.IncrementBatchesFailed()
	h.reporter.Warn("log batch could not be delivered and will be dropped",
		zap.Int("lines", lines),
		zap.Error(err))
	return err
}
