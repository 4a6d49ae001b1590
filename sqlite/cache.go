package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fwojciec/fulltext"
)

// Compile-time interface verification.
var _ fulltext.ResponseCache = (*ResponseCache)(nil)

// ResponseCache implements fulltext.ResponseCache using SQLite. Expiry is
// stored as unix milliseconds; expired rows stay on disk until
// CleanExpired runs but are never returned.
type ResponseCache struct {
	db  *DB
	now func() time.Time
}

// CacheOption configures a ResponseCache.
type CacheOption func(*ResponseCache)

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *ResponseCache) {
		c.now = now
	}
}

// NewResponseCache creates a new ResponseCache.
func NewResponseCache(db *DB, opts ...CacheOption) *ResponseCache {
	c := &ResponseCache{db: db, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key, or ENOTFOUND if it is missing
// or expired.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx, `
		SELECT value FROM cache
		WHERE key = ? AND expires_at > ?
	`, key, c.now().UnixMilli()).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fulltext.Errorf(fulltext.ENOTFOUND, "cache miss")
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key for ttl, replacing any previous value.
func (c *ResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fulltext.Errorf(fulltext.EINVALID, "cache ttl must be positive")
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, c.now().Add(ttl).UnixMilli())
	return err
}

// CleanExpired deletes expired entries and reports how many were removed.
func (c *ResponseCache) CleanExpired(ctx context.Context) (int, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cache WHERE expires_at <= ?`, c.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
