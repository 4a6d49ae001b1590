package slog

import (
	"log/slog"

	"github.com/fwojciec/fulltext"
)

// Ensure LoggingRuleStore implements fulltext.RuleStore.
var _ fulltext.RuleStore = (*LoggingRuleStore)(nil)

// LoggingRuleStore wraps a RuleStore with debug logging of resolutions.
type LoggingRuleStore struct {
	next   fulltext.RuleStore
	logger *slog.Logger
}

// NewLoggingRuleStore creates a new LoggingRuleStore.
func NewLoggingRuleStore(next fulltext.RuleStore, logger *slog.Logger) *LoggingRuleStore {
	return &LoggingRuleStore{next: next, logger: logger}
}

// Resolve delegates to the wrapped store. Misses are expected and logged
// without an error attribute.
func (s *LoggingRuleStore) Resolve(host string) (*fulltext.RuleSet, error) {
	rs, err := s.next.Resolve(host)
	switch {
	case err == nil:
		s.logger.Debug("rules", "host", host, "found", true)
	case fulltext.ErrorCode(err) == fulltext.ENOTFOUND:
		s.logger.Debug("rules", "host", host, "found", false)
	default:
		s.logger.Warn("rules", "host", host, "err", err)
	}
	return rs, err
}
