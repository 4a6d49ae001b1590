package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/fulltext"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (*fulltext.FetchResponse, error)

// LogFunc is the signature for a logging function.
type LogFunc func(msg string, args ...any)

// DefaultRetryDelays returns the backoff delays for source feed retries:
// 500ms, then 1s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{500 * time.Millisecond, time.Second}
}

// FetchWithRetry calls fetch until it succeeds, waiting delays[i] before
// retry i+1. Invalid and blocked URLs are not retried. The logger, if
// provided, is called before each retry.
func FetchWithRetry(ctx context.Context, url string, fetch FetchFunc, logger LogFunc, delays []time.Duration) (*fulltext.FetchResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		resp, err := fetch(ctx, url)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		switch fulltext.ErrorCode(err) {
		case fulltext.EINVALID, fulltext.EBLOCKED:
			return nil, err
		}
		if attempt == len(delays) {
			break
		}

		if logger != nil {
			logger("retry", "url", url, "attempt", attempt+2, "err", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
	return nil, lastErr
}
