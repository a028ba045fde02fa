// Package registry talks to the package registry: the Go module proxy for
// version resolution and an optional dependents index for reverse-dependency
// listings.
package registry

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

type Client struct {
	proxyURL string
	indexURL string
	httpc    *http.Client
	group    singleflight.Group
}

type options struct {
	token   string
	verbose bool
	// writer controls where verbose HTTP logs are written (typically stderr)
	// so structured output on stdout stays clean and tests can capture logs.
	writer io.Writer
}

type Option func(*options)

// WithToken attaches a bearer token to every registry request. Private
// dependents indexes commonly require one.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

func WithVerbose(enabled bool, writer io.Writer) Option {
	return func(o *options) {
		o.verbose = enabled
		o.writer = writer
	}
}

// loggingRoundTripper wraps an underlying transport and emits one line per
// request and response (including latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base http.RoundTripper
	w    io.Writer
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if t.w != nil {
		_, _ = fmt.Fprintf(t.w, "[verbose] registry: %s %s\n", req.Method, req.URL.String())
	}
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start)
	if t.w != nil {
		if err != nil {
			_, _ = fmt.Fprintf(t.w, "[verbose] registry: error after %s: %v\n", dur.Truncate(time.Millisecond), err)
		} else {
			_, _ = fmt.Fprintf(t.w, "[verbose] registry: %d %s (%s)\n", resp.StatusCode, http.StatusText(resp.StatusCode), dur.Truncate(time.Millisecond))
		}
	}
	return resp, err
}

// NewClient builds a registry client. proxyURL is required; indexURL may be
// empty when no dependents index is configured.
func NewClient(proxyURL, indexURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(proxyURL) == "" {
		return nil, errors.New("registry: proxy URL is required")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.writer == nil {
		o.writer = os.Stderr
	}

	transport := http.DefaultTransport
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, w: o.writer}
	}
	if o.token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}

	return &Client{
		proxyURL: strings.TrimRight(proxyURL, "/"),
		indexURL: strings.TrimRight(indexURL, "/"),
		httpc:    &http.Client{Transport: transport},
	}, nil
}

// HasIndex reports whether a dependents index is configured.
func (c *Client) HasIndex() bool { return c.indexURL != "" }
