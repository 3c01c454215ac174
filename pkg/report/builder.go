package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/creator"
	"github.com/mchmarny/creatorpulse/pkg/data"
	"github.com/mchmarny/creatorpulse/pkg/metrics"
	"github.com/mchmarny/creatorpulse/pkg/score"
)

const cacheKeyPrefix = "creator:"

// Fetcher loads a creator snapshot from upstream.
type Fetcher interface {
	FetchCreator(ctx context.Context, id string) (*creator.Snapshot, error)
}

// RankingSource returns the latest ranking entries keyed by kind.
type RankingSource interface {
	LatestRankings(ctx context.Context) (map[string][]*data.RankingEntry, error)
}

// Builder composes cached or freshly fetched snapshots into reports.
type Builder struct {
	fetcher  Fetcher
	cache    *data.Cache
	cfg      *score.Config
	rankings RankingSource
	now      func() time.Time
}

type Option func(*Builder)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithRankings attaches stored ranking positions to report characters.
func WithRankings(src RankingSource) Option {
	return func(b *Builder) {
		b.rankings = src
	}
}

// NewBuilder returns a builder. cache may be nil to always fetch.
func NewBuilder(f Fetcher, cache *data.Cache, cfg *score.Config, opts ...Option) *Builder {
	if cfg == nil {
		cfg = score.DefaultConfig()
	}
	b := &Builder{fetcher: f, cache: cache, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

// CacheKey is the cache key of a creator snapshot.
func CacheKey(id string) string {
	return cacheKeyPrefix + id
}

// Snapshot returns the creator snapshot from cache when fresh, otherwise
// fetches and caches it. The bool reports a cache hit.
func (b *Builder) Snapshot(ctx context.Context, id string) (*creator.Snapshot, bool, error) {
	if id == "" {
		return nil, false, errors.New("creator id required")
	}

	key := CacheKey(id)
	if b.cache != nil {
		var snap creator.Snapshot
		_, err := data.GetJSON(ctx, b.cache, key, &snap)
		if err == nil {
			return &snap, true, nil
		}
		if !errors.Is(err, data.ErrCacheMiss) {
			slog.Warn("cache read failed, fetching", "key", key, "error", err)
		}
	}

	if b.fetcher == nil {
		return nil, false, errors.New("fetcher not configured")
	}
	snap, err := b.fetcher.FetchCreator(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if b.cache != nil {
		if err := data.PutJSON(ctx, b.cache, key, snap); err != nil {
			slog.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return snap, false, nil
}

// Build returns the report of creator id for period using the configured
// interaction mode.
func (b *Builder) Build(ctx context.Context, id string, period score.Period) (*Report, error) {
	return b.BuildMode(ctx, id, period, b.cfg.Interactions)
}

// BuildMode is Build with an explicit interaction mode. An empty mode uses
// the configured one.
func (b *Builder) BuildMode(ctx context.Context, id string, period score.Period, mode creator.InteractionMode) (*Report, error) {
	if mode == "" {
		mode = b.cfg.Interactions
	}
	snap, hit, err := b.Snapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading creator %s: %w", id, err)
	}

	if b.rankings != nil {
		rankings, err := b.rankings.LatestRankings(ctx)
		if err != nil {
			slog.Warn("ranking lookup failed", "id", id, "error", err)
		} else {
			snap = withRankings(snap, rankings)
		}
	}

	cfg := *b.cfg
	cfg.Interactions = mode
	r := Compose(snap, period, b.now(), &cfg)
	if r.CreatorID == "" {
		r.CreatorID = id
	}
	r.Cached = hit

	metrics.ReportsBuilt.WithLabelValues(string(r.Period), string(r.Tier.Key)).Inc()
	slog.Debug("report built", "id", id, "period", r.Period, "tier", r.Tier.Label, "cached", hit)
	return r, nil
}

// Refresh drops the cached snapshot of id.
func (b *Builder) Refresh(ctx context.Context, id string) error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Invalidate(ctx, CacheKey(id))
}
