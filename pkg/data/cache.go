package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mchmarny/creatorpulse/pkg/metrics"
)

// CacheTTLDefault is how long a creator snapshot stays fresh.
const CacheTTLDefault = 20 * time.Minute

// Cache is a TTL-checked key/value cache over a Store. The clock is
// injectable so freshness can be tested.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

type CacheOption func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache wraps store. A non-positive ttl falls back to CacheTTLDefault.
func NewCache(store Store, ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = CacheTTLDefault
	}
	c := &Cache{store: store, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the value and its stored time, or ErrCacheMiss when the key
// is absent or the entry is at least TTL old.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	if c == nil || c.store == nil {
		return nil, time.Time{}, ErrCacheMiss
	}

	e, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			metrics.CacheMisses.Inc()
		}
		return nil, time.Time{}, err
	}

	if !c.now().Before(e.StoredAt.Add(c.ttl)) {
		metrics.CacheMisses.Inc()
		return nil, e.StoredAt, ErrCacheMiss
	}

	metrics.CacheHits.Inc()
	return e.Value, e.StoredAt, nil
}

// Put stores value under key with the current time.
func (c *Cache) Put(ctx context.Context, key string, value []byte) error {
	if c == nil || c.store == nil {
		return errDBNotInitialized
	}
	return c.store.Put(ctx, &Entry{Key: key, Value: value, StoredAt: c.now().UTC()})
}

// Invalidate removes key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.store == nil {
		return errDBNotInitialized
	}
	return c.store.Delete(ctx, key)
}

// Purge removes every entry older than TTL.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	if c == nil || c.store == nil {
		return 0, errDBNotInitialized
	}
	return c.store.Purge(ctx, c.now().Add(-c.ttl))
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

// GetJSON decodes a fresh cached value into target.
func GetJSON[T any](ctx context.Context, c *Cache, key string, target *T) (time.Time, error) {
	b, storedAt, err := c.Get(ctx, key)
	if err != nil {
		return storedAt, err
	}
	if err := json.Unmarshal(b, target); err != nil {
		return storedAt, fmt.Errorf("error decoding cached %s: %w", key, err)
	}
	return storedAt, nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, c *Cache, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding %s for cache: %w", key, err)
	}
	return c.Put(ctx, key, b)
}
