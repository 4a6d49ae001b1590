package crawl_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("returns the first success", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		fetch := func(ctx context.Context, url string) (*fulltext.FetchResponse, error) {
			attempts++
			if attempts < 3 {
				return nil, fulltext.Errorf(fulltext.EFETCH, "timeout")
			}
			return &fulltext.FetchResponse{StatusCode: 200}, nil
		}
		var retries int
		logger := func(msg string, args ...any) { retries++ }

		resp, err := crawl.FetchWithRetry(context.Background(), "https://example.com", fetch, logger, []time.Duration{0, 0, 0})

		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, 2, retries)
	})

	t.Run("gives up after the last delay", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		fetch := func(ctx context.Context, url string) (*fulltext.FetchResponse, error) {
			attempts++
			return nil, fulltext.Errorf(fulltext.EFETCH, "refused")
		}

		_, err := crawl.FetchWithRetry(context.Background(), "https://example.com", fetch, nil, []time.Duration{0, 0})

		assert.Equal(t, fulltext.EFETCH, fulltext.ErrorCode(err))
		assert.Equal(t, 3, attempts)
	})

	t.Run("does not retry invalid URLs", func(t *testing.T) {
		t.Parallel()

		attempts := 0
		fetch := func(ctx context.Context, url string) (*fulltext.FetchResponse, error) {
			attempts++
			return nil, fulltext.Errorf(fulltext.EINVALID, "unsupported scheme")
		}

		_, err := crawl.FetchWithRetry(context.Background(), "ftp://example.com", fetch, nil, []time.Duration{0, 0})

		assert.Equal(t, fulltext.EINVALID, fulltext.ErrorCode(err))
		assert.Equal(t, 1, attempts)
	})

	t.Run("stops waiting when the context is canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		fetch := func(ctx context.Context, url string) (*fulltext.FetchResponse, error) {
			cancel()
			return nil, fulltext.Errorf(fulltext.EFETCH, "refused")
		}

		_, err := crawl.FetchWithRetry(ctx, "https://example.com", fetch, nil, []time.Duration{time.Hour})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDefaultRetryDelays(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, crawl.DefaultRetryDelays())
}
