package net

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
	maxBodyBytes     = 16 << 20

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultMaxRetries      = 3
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
)

var (
	reqTransport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       timeoutInSeconds * time.Second,
		DisableKeepAlives:     false,
		ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
	}

	// ErrNotFound is returned when the upstream answers 404.
	ErrNotFound = errors.New("not found")
)

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Client performs GET requests with a fixed user agent and retries 429 and
// 5xx responses with exponential backoff.
type Client struct {
	http            *http.Client
	userAgent       string
	maxRetries      uint64
	initialInterval time.Duration
}

type Option func(*Client)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRetry sets the retry budget and first backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		if initial > 0 {
			c.initialInterval = initial
		}
	}
}

// WithHTTPClient replaces the shared transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout:   time.Duration(timeoutInSeconds) * time.Second,
			Transport: reqTransport,
		},
		userAgent:       DefaultUserAgent,
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get issues a GET and returns the first non-retryable response. The caller
// must close the body.
func (c *Client) Get(ctx context.Context, url, accept string) (*http.Response, error) {
	return c.get(ctx, url, accept, false)
}

// Relay is Get for proxies: when the retry budget runs out on 429 or 5xx the
// last upstream response is returned instead of a *StatusError. The caller
// must close the body.
func (c *Client) Relay(ctx context.Context, url, accept string) (*http.Response, error) {
	return c.get(ctx, url, accept, true)
}

func (c *Client) get(ctx context.Context, url, accept string, keepLast bool) (*http.Response, error) {
	var resp, last *http.Response

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error creating HTTP Get request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		r, err := c.http.Do(req) //nolint:gosec // G704: base URL comes from config
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("error executing request: %w", err)
		}

		if retryable(r.StatusCode) {
			if keepLast {
				last = buffer(r)
			} else {
				drain(r)
			}
			return &StatusError{StatusCode: r.StatusCode, URL: url}
		}

		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		slog.Debug("retrying upstream request", "url", url, "wait", wait.String(), "error", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(c.newBackOff(), ctx), notify); err != nil {
		var se *StatusError
		if last != nil && errors.As(err, &se) {
			return last, nil
		}
		return nil, err
	}
	return resp, nil
}

// GetBody returns the body of a 2xx response. 404 maps to ErrNotFound and
// other statuses to *StatusError.
func (c *Client) GetBody(ctx context.Context, url, accept string) ([]byte, error) {
	resp, err := c.Get(ctx, url, accept)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		PrintHTTPResponse(resp)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return b, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = defaultMaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, c.maxRetries)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// buffer reads the body into memory so r outlives its connection.
func buffer(r *http.Response) *http.Response {
	b, _ := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(b))
	return r
}

func drain(r *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, maxBodyBytes))
	r.Body.Close()
}
