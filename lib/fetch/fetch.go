// Package fetch implements the HTTP plumbing shared by every data source: a rate limited client that returns raw
// JSON bodies and the error taxonomy reported by panels (network, response and transform errors).
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout applies to requests when the client is created with a zero timeout.
const DefaultTimeout = 15 * time.Second

// maxBody bounds the size of upstream responses (the yield pool listing is the largest, several MB).
const maxBody = 64 << 20

// Client performs GET and JSON POST requests against upstream APIs. When a rate is set, requests to each host share
// a token bucket so that one slow panel refresh cannot flood a public API.
type Client struct {
	hc    *http.Client
	rate  rate.Limit
	burst int

	l        sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient returns a client with the given timeout. A zero rate disables limiting.
func NewClient(timeout time.Duration, r rate.Limit, burst int) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if burst <= 0 {
		burst = 1
	}

	return &Client{
		hc:       &http.Client{Timeout: timeout},
		rate:     r,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// WithHTTPClient replaces the underlying http client, ie. to use an httptest server's client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.hc = hc

	return c
}

// Get requests uri and returns its JSON body.
func (c *Client) Get(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &NetworkError{URL: uri, Err: err}
	}

	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// PostJSON posts body encoded as JSON to uri and returns the JSON reply.
func (c *Client) PostJSON(ctx context.Context, uri string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("fetch: cannot encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(payload))
	if err != nil {
		return nil, &NetworkError{URL: uri, Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	uri := redact(req.URL)

	if lim := c.limiter(req.URL.Host); lim != nil {
		if err := lim.Wait(req.Context()); err != nil {
			return nil, &NetworkError{URL: uri, Err: err}
		}
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: uri, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, &NetworkError{URL: uri, Err: err}
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, &ResponseError{URL: uri, Status: res.StatusCode, Err: ErrStatus}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ResponseError{URL: uri, Err: ErrEmptyBody}
	}

	if !json.Valid(body) {
		return nil, &ResponseError{URL: uri, Err: ErrNotJSON}
	}

	return body, nil
}

func (c *Client) limiter(host string) *rate.Limiter {
	if c.rate == 0 {
		return nil
	}

	c.l.Lock()
	defer c.l.Unlock()

	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(c.rate, c.burst)
		c.limiters[host] = lim
	}

	return lim
}

// redact drops the query string, RPC providers carry API keys in it.
func redact(u *url.URL) string {
	r := *u
	r.RawQuery = ""
	r.User = nil

	return r.String()
}

// Endpoint is the opaque (request) -> JSON capability a panel polls.
type Endpoint interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// EndpointFunc adapts a function to the Endpoint interface.
type EndpointFunc func(ctx context.Context) ([]byte, error)

// Fetch calls f.
func (f EndpointFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

// URL is a GET endpoint.
type URL struct {
	Client *Client
	URI    string
}

// Fetch gets the URI.
func (u URL) Fetch(ctx context.Context) ([]byte, error) {
	return u.Client.Get(ctx, u.URI)
}
