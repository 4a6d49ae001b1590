package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/fulltext"
)

// Ensure LoggingFetcher implements fulltext.Fetcher.
var _ fulltext.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging.
type LoggingFetcher struct {
	next   fulltext.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next fulltext.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Prefetch delegates to the wrapped fetcher.
func (f *LoggingFetcher) Prefetch(ctx context.Context, urls []string) {
	f.logger.Debug("prefetch", "count", len(urls))
	f.next.Prefetch(ctx, urls)
}

// Get delegates to the wrapped fetcher and logs the response.
func (f *LoggingFetcher) Get(ctx context.Context, url string, followRedirects bool) (resp *fulltext.FetchResponse, err error) {
	defer func(begin time.Time) {
		if err != nil {
			f.logger.Warn("fetch",
				"url", url,
				"duration", time.Since(begin),
				"err", err,
			)
			return
		}
		f.logger.Info("fetch",
			"url", url,
			"status", resp.StatusCode,
			"effective", resp.EffectiveURL,
			"bytes", len(resp.Body),
			"cached", resp.Cached,
			"duration", time.Since(begin),
		)
	}(time.Now())
	return f.next.Get(ctx, url, followRedirects)
}
