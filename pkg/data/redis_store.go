package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "creatorpulse:cache:"

	fieldValue    = "value"
	fieldStoredAt = "stored_at"
)

// RedisStore keeps each entry in a hash with the value and stored time.
// Keys also carry a native expiry so abandoned entries do not pile up.
type RedisStore struct {
	rdb    *redis.Client
	expiry time.Duration
}

func NewRedisStore(rdb *redis.Client, expiry time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, expiry: expiry}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	if s == nil || s.rdb == nil {
		return nil, errDBNotInitialized
	}

	m, err := s.rdb.HGetAll(ctx, redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}
	if len(m) == 0 {
		return nil, ErrCacheMiss
	}

	ms, err := strconv.ParseInt(m[fieldStoredAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid stored time for %s: %w", key, err)
	}

	return &Entry{Key: key, Value: []byte(m[fieldValue]), StoredAt: time.UnixMilli(ms).UTC()}, nil
}

func (s *RedisStore) Put(ctx context.Context, e *Entry) error {
	if s == nil || s.rdb == nil {
		return errDBNotInitialized
	}
	if e == nil || e.Key == "" {
		return errors.New("cache entry with key required")
	}

	k := redisKey(e.Key)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, fieldValue, e.Value, fieldStoredAt, e.StoredAt.UnixMilli())
		if s.expiry > 0 {
			p.Expire(ctx, k, s.expiry)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put cache entry %s: %w", e.Key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.rdb == nil {
		return errDBNotInitialized
	}
	if err := s.rdb.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// Purge is a no-op; Redis expires keys on its own.
func (s *RedisStore) Purge(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}
