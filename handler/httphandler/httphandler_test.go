package httphandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/philipp01105/nlog-logdna/config"
	"github.com/philipp01105/nlog-logdna/core"
	"github.com/philipp01105/nlog-logdna/formatter"
	"github.com/philipp01105/nlog-logdna/ingest"
)

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

func (r *recordingReporter) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

type request struct {
	header http.Header
	query  map[string]string
	lines  []json.RawMessage
}

// ingestServer records every request body it receives
type ingestServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []request
	status   int
}

func newIngestServer(t *testing.T) *ingestServer {
	t.Helper()
	s := &ingestServer{status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var envelope struct {
			Lines []json.RawMessage `json:"lines"`
		}
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Errorf("decoding envelope: %v", err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.requests = append(s.requests, request{
			header: r.Header.Clone(),
			query:  map[string]string{"hostname": r.URL.Query().Get("hostname"), "tags": r.URL.Query().Get("tags")},
			lines:  envelope.Lines,
		})
		w.WriteHeader(s.status)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *ingestServer) Requests() []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]request(nil), s.requests...)
}

func (s *ingestServer) lineCounts() []int {
	var counts []int
	for _, r := range s.Requests() {
		counts = append(counts, len(r.lines))
	}
	return counts
}

var testTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func entry(level core.Level, msg string, fields ...core.Field) *core.Entry {
	return &core.Entry{Time: testTime, Level: level, Message: msg, Fields: fields}
}

func newHandler(t *testing.T, srv *ingestServer, rep *recordingReporter, mutate func(*Config)) *Handler {
	t.Helper()
	cfg := Config{
		IngestURL: srv.URL + "/logs/ingest",
		APIKey:    "secret",
		AppName:   "svc",
		Hostname:  "web-1",
		Period:    time.Hour,
		Reporter:  rep,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHandler_Flush(t *testing.T) {
	srv := newIngestServer(t)
	h := newHandler(t, srv, &recordingReporter{}, func(c *Config) { c.Tags = "a,b" })

	require.NoError(t, h.Handle(entry(core.InfoLevel, "first")))
	require.NoError(t, h.Handle(entry(core.WarnLevel, "second {n}", core.Field{Key: "n", Type: core.IntType, Int64: 2})))
	require.NoError(t, h.Flush(context.Background()))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, ingest.BasicAuthorization("secret"), req.header.Get("Authorization"))
	assert.Equal(t, ingest.ContentType, req.header.Get("Content-Type"))
	assert.Equal(t, "web-1", req.query["hostname"])
	assert.Equal(t, "a,b", req.query["tags"])
	require.Len(t, req.lines, 2)
	assert.JSONEq(t,
		`{"timestamp":"2024-01-01T00:00:00.0000000Z","level":"Information","app":"svc","line":"first"}`,
		string(req.lines[0]))
	assert.JSONEq(t,
		`{"timestamp":"2024-01-01T00:00:00.0000000Z","level":"Warning","app":"svc","line":"second 2","meta":{"n":2}}`,
		string(req.lines[1]))

	stats := h.Stats()
	assert.Equal(t, uint64(1), stats.BatchesSent)
	assert.Equal(t, uint64(2), stats.ProcessedTotal)
}

func TestHandler_FlushEmptySendsNothing(t *testing.T) {
	srv := newIngestServer(t)
	h := newHandler(t, srv, &recordingReporter{}, nil)

	require.NoError(t, h.Flush(context.Background()))
	assert.Empty(t, srv.Requests())
}

func TestHandler_CountLimit(t *testing.T) {
	srv := newIngestServer(t)
	h := newHandler(t, srv, &recordingReporter{}, func(c *Config) { c.BatchCountLimit = 2 })

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Handle(entry(core.InfoLevel, "line")))
	}
	require.NoError(t, h.Close())

	assert.Equal(t, []int{2, 2, 1}, srv.lineCounts())
}

func TestHandler_SizeLimit(t *testing.T) {
	srv := newIngestServer(t)

	f := formatter.NewLogDNAFormatter(formatter.LogDNAConfig{App: "svc"})
	lineLen := len(bytes.TrimSpace(f.Format(entry(core.InfoLevel, "a1"))))
	limit := 2*lineLen + formatter.EnvelopeOverhead(2)

	h := newHandler(t, srv, &recordingReporter{}, func(c *Config) { c.BatchSizeLimitBytes = limit })
	for _, msg := range []string{"a1", "a2", "a3"} {
		require.NoError(t, h.Handle(entry(core.InfoLevel, msg)))
	}
	require.NoError(t, h.Close())

	assert.Equal(t, []int{2, 1}, srv.lineCounts())
}

func TestHandler_OversizedLineDropped(t *testing.T) {
	srv := newIngestServer(t)
	rep := &recordingReporter{}
	h := newHandler(t, srv, rep, func(c *Config) { c.BatchSizeLimitBytes = 64 })

	require.NoError(t, h.Handle(entry(core.ErrorLevel, strings.Repeat("x", 100))))
	require.NoError(t, h.Close())

	assert.Empty(t, srv.Requests())
	assert.Equal(t, uint64(1), h.Stats().DroppedTotal[core.ErrorLevel])
	assert.Equal(t, []string{"log line exceeds the batch size limit and will be dropped"}, rep.Warnings())
}

func TestHandler_RejectedBatch(t *testing.T) {
	srv := newIngestServer(t)
	srv.status = http.StatusInternalServerError
	rep := &recordingReporter{}
	h := newHandler(t, srv, rep, nil)

	require.NoError(t, h.Handle(entry(core.InfoLevel, "lost")))
	require.NoError(t, h.Flush(context.Background()))

	stats := h.Stats()
	assert.Equal(t, uint64(1), stats.BatchesFailed)
	assert.Equal(t, uint64(0), stats.BatchesSent)
	assert.Equal(t, uint64(0), stats.ProcessedTotal)
	assert.Equal(t, []string{"log batch could not be delivered and will be dropped"}, rep.Warnings())
	assert.Len(t, srv.Requests(), 1, "failed batches are not retried")
}

func TestHandler_NilEntry(t *testing.T) {
	srv := newIngestServer(t)
	h := newHandler(t, srv, &recordingReporter{}, nil)

	assert.NotPanics(t, func() { assert.NoError(t, h.Handle(nil)) })
	require.NoError(t, h.Flush(context.Background()))
	assert.Empty(t, srv.Requests())
}

func TestHandler_MinLevel(t *testing.T) {
	srv := newIngestServer(t)
	h := newHandler(t, srv, &recordingReporter{}, func(c *Config) { c.MinLevel = core.WarnLevel })

	require.NoError(t, h.Handle(entry(core.DebugLevel, "quiet")))
	require.NoError(t, h.Handle(entry(core.ErrorLevel, "loud")))
	require.NoError(t, h.Flush(context.Background()))

	assert.Equal(t, []int{1}, srv.lineCounts())
}

func TestHandler_Unformattable(t *testing.T) {
	srv := newIngestServer(t)
	rep := &recordingReporter{}
	h := newHandler(t, srv, rep, nil)

	require.NoError(t, h.Handle(entry(core.InfoLevel, "bad", core.Field{Key: "c", Type: core.AnyType, Any: make(chan int)})))
	require.NoError(t, h.Flush(context.Background()))

	assert.Empty(t, srv.Requests())
	assert.Equal(t, uint64(1), h.Stats().UnformattableTotal)
	assert.Equal(t, []string{"bad"}, rep.dropped)
}

func TestHandler_PeriodicFlush(t *testing.T) {
	srv := newIngestServer(t)
	h := newHandler(t, srv, &recordingReporter{}, func(c *Config) { c.Period = 20 * time.Millisecond })

	require.NoError(t, h.Handle(entry(core.InfoLevel, "tick")))

	assert.Eventually(t, func() bool { return len(srv.Requests()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_Closed(t *testing.T) {
	srv := newIngestServer(t)
	h := newHandler(t, srv, &recordingReporter{}, nil)

	require.NoError(t, h.Handle(entry(core.InfoLevel, "before close")))
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	assert.Equal(t, []int{1}, srv.lineCounts(), "close flushes pending lines")
	assert.ErrorIs(t, h.Handle(entry(core.InfoLevel, "after close")), ErrClosed)
	assert.ErrorIs(t, h.Flush(context.Background()), ErrClosed)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Hostname: "h"})
	assert.ErrorIs(t, err, ingest.ErrMissingAPIKey)

	_, err = New(Config{APIKey: "k", Hostname: "h", IngestURL: "not a url"})
	assert.Error(t, err)
}

func TestNew_DefaultURL(t *testing.T) {
	h, err := New(Config{APIKey: "k", Hostname: "web-1", Tags: "x"})
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, ingest.DefaultURL+"?hostname=web-1&tags=x", h.URI())
}

// fakePoster records bodies without a network round trip
type fakePoster struct {
	mu     sync.Mutex
	bodies []string
	err    error
	closed bool
}

func (p *fakePoster) Post(_ context.Context, _ string, body io.Reader) (*http.Response, error) {
	data, _ := io.ReadAll(body)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies = append(p.bodies, string(data))
	if p.err != nil {
		return nil, p.err
	}
	return &http.Response{StatusCode: http.StatusAccepted, Status: "202 Accepted", Body: io.NopCloser(strings.NewReader(""))}, nil
}

func (p *fakePoster) Close() error {
	p.closed = true
	return nil
}

func TestHandler_InjectedPoster(t *testing.T) {
	p := &fakePoster{}
	h, err := New(Config{APIKey: "k", Hostname: "h", AppName: "svc", Poster: p, Period: time.Hour})
	require.NoError(t, err)

	require.NoError(t, h.Handle(entry(core.InfoLevel, "hi")))
	require.NoError(t, h.Close())

	assert.True(t, p.closed)
	assert.Equal(t,
		[]string{`{"lines":[{"timestamp":"2024-01-01T00:00:00.0000000Z","level":"Information","app":"svc","line":"hi"}]}`},
		p.bodies)
}

func TestHandler_CloseReportsFinalFailure(t *testing.T) {
	p := &fakePoster{err: errors.New("connection refused")}
	rep := &recordingReporter{}
	h, err := New(Config{APIKey: "k", Hostname: "h", Poster: p, Period: time.Hour, Reporter: rep})
	require.NoError(t, err)

	require.NoError(t, h.Handle(entry(core.InfoLevel, "hi")))
	err = h.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, uint64(1), h.Stats().BatchesFailed)
}

func TestFromConfig(t *testing.T) {
	t.Setenv("LOGDNA_ENV", "staging")
	c := &config.Config{APIKey: "k", AppName: "svc", MinLevel: "warn"}

	cfg := FromConfig(c)

	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "svc", cfg.AppName)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, ingest.DefaultURL, cfg.IngestURL)
	assert.Equal(t, core.WarnLevel, cfg.MinLevel)
	assert.Equal(t, config.DefaultBatchCountLimit, cfg.BatchCountLimit)
	assert.Equal(t, config.DefaultPeriod, cfg.Period)
}
