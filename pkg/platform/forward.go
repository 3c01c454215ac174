package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/metrics"
	"github.com/mchmarny/creatorpulse/pkg/net"
)

const maxForwardBytes = 8 << 20

// ErrForbiddenPath is returned for proxy paths outside the allowlist.
var ErrForbiddenPath = errors.New("path not allowed")

var forwardPrefixes = []string{
	"v1/users/",
	"v1/plots/",
	"v1/hashtags",
}

// Forwarded is an upstream response relayed as-is.
type Forwarded struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// AllowedPath reports whether path may be forwarded upstream.
func AllowedPath(path string) bool {
	p := strings.TrimPrefix(path, "/")
	if p == "" || strings.Contains(p, "..") || strings.Contains(p, "//") || strings.Contains(p, "\\") {
		return false
	}
	for _, prefix := range forwardPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Forward relays a GET to the upstream API. path is the decoded path and
// each segment is escaped again, so "?", "#" and spaces stay in the path.
// Upstream statuses, 404 and an exhausted 429 or 5xx included, are passed
// through unchanged.
func (c *Client) Forward(ctx context.Context, path, rawQuery string) (*Forwarded, error) {
	if !AllowedPath(path) {
		return nil, ErrForbiddenPath
	}

	u := c.apiURL(strings.Split(strings.TrimPrefix(path, "/"), "/")...)
	if rawQuery != "" {
		u += "?" + rawQuery
	}

	start := time.Now()
	resp, err := c.net.Relay(ctx, u, "application/json")
	if err != nil {
		metrics.UpstreamDuration.WithLabelValues("proxy", statusLabel(err)).Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("error forwarding %s: %w", path, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamDuration.WithLabelValues("proxy", responseLabel(resp.StatusCode)).Observe(time.Since(start).Seconds())

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxForwardBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading forwarded body: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return &Forwarded{StatusCode: resp.StatusCode, ContentType: ct, Body: b}, nil
}

func responseLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "ok"
	case code == http.StatusNotFound:
		return "not_found"
	default:
		return strconv.Itoa(code)
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, net.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
