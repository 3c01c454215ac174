package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect holds the statements that differ between SQL engines.
type Dialect struct {
	Name   string
	upsert string
	get    string
	delete string
	purge  string
}

var (
	DialectSQLite = Dialect{
		Name: sqliteDriver,
		upsert: `INSERT INTO cache_entry (key, value, stored_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`,
		get:    `SELECT value, stored_at FROM cache_entry WHERE key = ?`,
		delete: `DELETE FROM cache_entry WHERE key = ?`,
		purge:  `DELETE FROM cache_entry WHERE stored_at < ?`,
	}

	DialectPostgres = Dialect{
		Name: postgresDriver,
		upsert: `INSERT INTO cache_entry (key, value, stored_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, stored_at = EXCLUDED.stored_at`,
		get:    `SELECT value, stored_at FROM cache_entry WHERE key = $1`,
		delete: `DELETE FROM cache_entry WHERE key = $1`,
		purge:  `DELETE FROM cache_entry WHERE stored_at < $1`,
	}
)

// SQLStore keeps cache entries in a database/sql table. stored_at is
// persisted as unix milliseconds.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d}
}

// DB exposes the underlying handle for snapshot queries.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect returns the statements the store was built with.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) Get(ctx context.Context, key string) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, errDBNotInitialized
	}

	var value []byte
	var storedAt int64
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value, &storedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}

	return &Entry{Key: key, Value: value, StoredAt: time.UnixMilli(storedAt).UTC()}, nil
}

func (s *SQLStore) Put(ctx context.Context, e *Entry) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}
	if e == nil || e.Key == "" {
		return errors.New("cache entry with key required")
	}

	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, e.Key, e.Value, e.StoredAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to put cache entry %s: %w", e.Key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.delete, key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errDBNotInitialized
	}
	res, err := s.db.ExecContext(ctx, s.dialect.purge, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged entries: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
