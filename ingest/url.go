package ingest

import (
	"net/url"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/go-querystring/query"
)

// ErrMissingIngestURL is returned when the ingest URL is blank
var ErrMissingIngestURL = errors.New("ingest: ingest url is required")

// Params are the query parameters appended to the ingest URL
type Params struct {
	Hostname string `url:"hostname"`
	Tags     string `url:"tags,omitempty"`
}

// BuildURL appends the hostname and tags parameters to base. An empty
// hostname defaults to the lower-cased name of the local host; empty
// tags are omitted.
func BuildURL(base, hostname, tags string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", ErrMissingIngestURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return "", errors.Wrapf(err, "ingest: invalid ingest url %q", base)
	}

	if hostname == "" {
		h, err := LocalHostname()
		if err != nil {
			return "", err
		}
		hostname = h
	}

	v, err := query.Values(Params{Hostname: hostname, Tags: tags})
	if err != nil {
		return "", errors.Wrap(err, "ingest: encoding query")
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + v.Encode(), nil
}

// LocalHostname returns the lower-cased host name
func LocalHostname() (string, error) {
	h, err := os.Hostname()
	if err != nil {
		return "", errors.Wrap(err, "ingest: resolving hostname")
	}
	return strings.ToLower(h), nil
}
