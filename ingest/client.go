// Package ingest talks to the LogDNA/Mezmo ingest endpoint.
//
// Client attaches the account's ingestion key as a static Basic
// credential (key as user name, empty password) and posts pre-built
// batch bodies as JSON. It neither retries nor inspects status codes;
// that policy belongs to the caller.
package ingest

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultURL is the hosted ingest endpoint
	DefaultURL = "https://logs.mezmo.com/logs/ingest"
	// ContentType is the content type of every batch body
	ContentType = "application/json; charset=utf-8"
	// DefaultTimeout bounds a single request when the client owns its http.Client
	DefaultTimeout = 30 * time.Second
)

var (
	// ErrMissingAPIKey is returned when the ingestion key is blank
	ErrMissingAPIKey = errors.New("ingest: api key is required")
	// ErrClosed is returned by Post after Close
	ErrClosed = errors.New("ingest: client is closed")
)

// Result is the outcome of an asynchronous post
type Result struct {
	Response *http.Response
	Err      error
}

// Client posts batches to the ingest endpoint
type Client struct {
	httpClient    *http.Client
	transport     *http.Transport // owned transport, nil when the http.Client was supplied
	authorization string
	userAgent     string

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// WithHTTPClient uses hc for all requests. The caller keeps ownership:
// Close does not release its connections.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the owned http.Client
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

// NewClient creates a client for the given ingestion key
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	o := clientOptions{timeout: DefaultTimeout, userAgent: "nlog-logdna"}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		authorization: BasicAuthorization(apiKey),
		userAgent:     o.userAgent,
		httpClient:    o.httpClient,
	}
	if c.httpClient == nil {
		c.transport = http.DefaultTransport.(*http.Transport).Clone()
		c.httpClient = &http.Client{Transport: c.transport, Timeout: o.timeout}
	}
	return c, nil
}

// BasicAuthorization returns the Authorization header value for apiKey
func BasicAuthorization(apiKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey+":"))
}

// Post sends body to uri. The response is returned as-is; the caller
// must close its body.
func (c *Client) Post(ctx context.Context, uri string, body io.Reader) (*http.Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.httpClient == nil {
		return nil, ErrClosed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, body)
	if err != nil {
		return nil, errors.Wrap(err, "ingest: building request")
	}
	req.Header.Set("Authorization", c.authorization)
	req.Header.Set("Content-Type", ContentType)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "ingest: posting batch")
	}
	return resp, nil
}

// PostAsync runs Post on its own goroutine. The returned channel yields
// exactly one Result and is then closed.
func (c *Client) PostAsync(ctx context.Context, uri string, body io.Reader) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		resp, err := c.Post(ctx, uri, body)
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}

// Close releases the idle connections of the transport the client owns.
// It may be called more than once and is a no-op on a zero Client.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		if c.transport != nil {
			c.transport.CloseIdleConnections()
		}
	})
	return nil
}
