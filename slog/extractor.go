package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/fulltext"
)

// Ensure LoggingExtractor implements fulltext.Extractor.
var _ fulltext.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging.
type LoggingExtractor struct {
	next   fulltext.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next fulltext.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the outcome.
func (e *LoggingExtractor) Extract(rawHTML, pageURL string) (result *fulltext.ExtractResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"url", pageURL,
			"bytes", len(rawHTML),
			"duration", time.Since(begin),
		}
		if result != nil {
			attrs = append(attrs,
				"success", result.Success,
				"rules", result.Source.String(),
			)
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}
		e.logger.Debug("extract", attrs...)
	}(time.Now())
	return e.next.Extract(rawHTML, pageURL)
}

// SinglePageURL delegates to the wrapped extractor and logs any link found.
func (e *LoggingExtractor) SinglePageURL(rawHTML, itemDescription, pageURL string) (string, bool) {
	u, ok := e.next.SinglePageURL(rawHTML, itemDescription, pageURL)
	if ok {
		e.logger.Debug("single page link", "url", pageURL, "single", u)
	}
	return u, ok
}
