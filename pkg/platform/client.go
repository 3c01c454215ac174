package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/creator"
	"github.com/mchmarny/creatorpulse/pkg/metrics"
	"github.com/mchmarny/creatorpulse/pkg/net"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBaseURL is the public API host.
	DefaultBaseURL = "https://api.zeta-ai.io"
	// DefaultWebURL is the public site used to resolve handles.
	DefaultWebURL = "https://zeta-ai.io"

	characterPageSize = 50
	maxCharacterPages = 40
)

// ErrNotFound is returned when the creator or resource does not exist.
var ErrNotFound = errors.New("creator not found")

// Client reads the platform's public API.
type Client struct {
	baseURL string
	webURL  string
	net     *net.Client
	now     func() time.Time
}

type Option func(*Client)

// WithWebURL sets the site used by Resolve.
func WithWebURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.webURL = strings.TrimRight(u, "/")
		}
	}
}

// WithNetClient replaces the HTTP client.
func WithNetClient(n *net.Client) Option {
	return func(c *Client) {
		if n != nil {
			c.net = n
		}
	}
}

// WithClock overrides time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient returns a client for baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL: %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		webURL:  DefaultWebURL,
		net:     net.NewClient(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// GetProfile returns the creator profile.
func (c *Client) GetProfile(ctx context.Context, id string) (*creator.Profile, error) {
	if id == "" {
		return nil, errors.New("creator id required")
	}

	var raw struct {
		creator.RawProfile
		User *creator.RawProfile `json:"user"`
	}
	if err := c.getJSON(ctx, "profile", c.apiURL("v1", "users", id), &raw); err != nil {
		return nil, err
	}

	p := creator.NormalizeProfile(&raw.RawProfile)
	if raw.User != nil {
		p = creator.NormalizeProfile(raw.User)
	}
	if p.ID == "" {
		p.ID = id
	}
	return p, nil
}

// GetStats returns the creator's aggregate counters.
func (c *Client) GetStats(ctx context.Context, id string) (*creator.Stats, error) {
	if id == "" {
		return nil, errors.New("creator id required")
	}

	var raw struct {
		creator.RawStats
		Stats *creator.RawStats `json:"stats"`
	}
	if err := c.getJSON(ctx, "stats", c.apiURL("v1", "users", id, "stats"), &raw); err != nil {
		return nil, err
	}

	if raw.Stats != nil {
		return creator.NormalizeStats(raw.Stats), nil
	}
	return creator.NormalizeStats(&raw.RawStats), nil
}

type pageCursor struct {
	NextCursor string `json:"nextCursor"`
	Cursor     string `json:"cursor"`
	HasNext    *bool  `json:"hasNext"`
}

func (p *pageCursor) next() string {
	if p.HasNext != nil && !*p.HasNext {
		return ""
	}
	if p.NextCursor != "" {
		return p.NextCursor
	}
	return p.Cursor
}

// ListCharacters pages through the creator's public characters until the
// cursor is exhausted or the page cap is reached.
func (c *Client) ListCharacters(ctx context.Context, id string) ([]*creator.Character, error) {
	if id == "" {
		return nil, errors.New("creator id required")
	}

	list := make([]*creator.Character, 0)
	seen := make(map[string]bool)
	cursor := ""

	for page := 0; page < maxCharacterPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(characterPageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		b, err := c.getBody(ctx, "characters", c.apiURL("v1", "users", id, "plots")+"?"+q.Encode())
		if err != nil {
			return nil, err
		}

		chars, err := creator.DecodeCharacters(b)
		if err != nil {
			return nil, err
		}
		for _, ch := range chars {
			if ch.ID != "" && seen[ch.ID] {
				continue
			}
			seen[ch.ID] = true
			if ch.CreatorID == "" {
				ch.CreatorID = id
			}
			list = append(list, ch)
		}

		next := nextCursor(b)
		if next == "" || next == cursor || len(chars) == 0 {
			return list, nil
		}
		cursor = next
	}

	return list, nil
}

// FetchCreator loads profile, stats and characters concurrently.
func (c *Client) FetchCreator(ctx context.Context, id string) (*creator.Snapshot, error) {
	if id == "" {
		return nil, errors.New("creator id required")
	}

	var (
		profile *creator.Profile
		stats   *creator.Stats
		chars   []*creator.Character
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = c.GetProfile(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = c.GetStats(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		chars, err = c.ListCharacters(gctx, id)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error fetching creator %s: %w", id, err)
	}

	return &creator.Snapshot{
		Profile:    profile,
		Stats:      stats,
		Characters: chars,
		FetchedAt:  c.now().UTC(),
	}, nil
}

func nextCursor(b []byte) string {
	trimmed := strings.TrimSpace(string(b))
	if !strings.HasPrefix(trimmed, "{") {
		return ""
	}
	var p pageCursor
	if err := json.Unmarshal(b, &p); err != nil {
		return ""
	}
	return p.next()
}

func (c *Client) apiURL(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) getBody(ctx context.Context, endpoint, u string) ([]byte, error) {
	start := time.Now()
	b, err := c.net.GetBody(ctx, u, "application/json")
	metrics.UpstreamDuration.WithLabelValues(endpoint, statusLabel(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, net.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error calling %s: %w", endpoint, err)
	}
	return b, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, u string, target any) error {
	b, err := c.getBody(ctx, endpoint, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("error decoding %s response: %w", endpoint, err)
	}
	return nil
}

func statusLabel(err error) string {
	var se *net.StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, net.ErrNotFound):
		return "not_found"
	case errors.As(err, &se):
		return strconv.Itoa(se.StatusCode)
	default:
		return "error"
	}
}
