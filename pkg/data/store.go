package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const storePingTimeout = 3 * time.Second

// ErrCacheMiss is returned when a key is absent or its entry expired.
var ErrCacheMiss = errors.New("cache miss")

// Entry is one cached value and the time it was stored.
type Entry struct {
	Key      string
	Value    []byte
	StoredAt time.Time
}

// Store persists cache entries. Implementations return ErrCacheMiss from
// Get when the key is absent; freshness is decided by Cache.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, key string) error
	// Purge removes entries stored before the given time.
	Purge(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// Store kinds returned by StoreKind.
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// StoreKind names the store OpenStore picks for dsn.
func StoreKind(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return StoreRedis
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return StorePostgres
	default:
		return StoreSQLite
	}
}

// OpenStore selects a store from dsn:
//
//	redis://... or rediss://...       Redis
//	postgres://... or postgresql://... Postgres
//	anything else                      sqlite file (dsn, or sqlitePath when empty)
//
// expiry is passed to stores with native key expiration.
func OpenStore(ctx context.Context, dsn, sqlitePath string, expiry time.Duration) (Store, error) {
	switch StoreKind(dsn) {
	case StoreRedis:
		return openRedisStore(ctx, dsn, expiry)
	case StorePostgres:
		return openPostgresStore(ctx, dsn)
	}

	path := dsn
	if path == "" {
		path = sqlitePath
	}
	if err := Init(path); err != nil {
		return nil, fmt.Errorf("initializing sqlite store: %w", err)
	}
	db, err := GetDB(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("cache store", "type", "sqlite", "path", path)
	return NewSQLStore(db, DialectSQLite), nil
}

func openRedisStore(ctx context.Context, dsn string, expiry time.Duration) (Store, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	slog.Debug("cache store", "type", "redis", "addr", opts.Addr)
	return NewRedisStore(rdb, expiry), nil
}

func openPostgresStore(ctx context.Context, dsn string) (Store, error) {
	db, err := sql.Open(postgresDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	if err := applySchema(db, "sql/ddl_postgres.sql"); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("cache store", "type", "postgres")
	return NewSQLStore(db, DialectPostgres), nil
}
