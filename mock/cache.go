package mock

import (
	"context"
	"time"

	"github.com/fwojciec/fulltext"
)

var _ fulltext.ResponseCache = (*ResponseCache)(nil)

// ResponseCache is a mock implementation of fulltext.ResponseCache.
type ResponseCache struct {
	GetFn          func(ctx context.Context, key string) ([]byte, error)
	SetFn          func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	CleanExpiredFn func(ctx context.Context) (int, error)
}

func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.GetFn(ctx, key)
}

func (c *ResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.SetFn(ctx, key, value, ttl)
}

func (c *ResponseCache) CleanExpired(ctx context.Context) (int, error) {
	return c.CleanExpiredFn(ctx)
}
