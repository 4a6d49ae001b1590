package fulltext

import (
	"context"
	"time"
)

// ResponseCache is a key to bytes store with per-entry lifetime.
type ResponseCache interface {
	// Get returns the value for key. Returns ENOTFOUND if the key is
	// missing or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// CleanExpired deletes expired entries and returns how many were
	// removed. It is a maintenance operation, not part of the request path.
	CleanExpired(ctx context.Context) (int, error)
}
