// Package trafilatura adapts go-trafilatura as an alternative content
// scorer.
package trafilatura

import (
	"net/url"

	"github.com/fwojciec/fulltext"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Scorer implements fulltext.Scorer at compile time.
var _ fulltext.Scorer = (*Scorer)(nil)

// Scorer finds article content with trafilatura, falling back to its
// readability and dom-distiller ports when its own pass finds too little.
type Scorer struct {
	fallback bool
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithFallback toggles the fallback extractors. They are on by default.
func WithFallback(on bool) Option {
	return func(s *Scorer) {
		s.fallback = on
	}
}

// NewScorer creates a new Scorer.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{fallback: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the trafilatura title and content of doc.
func (s *Scorer) Score(doc *html.Node, pageURL string) (*fulltext.ScoreResult, error) {
	if doc == nil {
		return nil, fulltext.Errorf(fulltext.EINVALID, "nil document")
	}

	opts := trafilatura.Options{
		EnableFallback: s.fallback,
	}
	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return nil, fulltext.Errorf(fulltext.EINVALID, "invalid page URL: %s", pageURL)
		}
		opts.OriginalURL = u
	}

	result, err := trafilatura.ExtractDocument(doc, opts)
	if err != nil {
		// trafilatura reports "text and comments are not long enough" as
		// an error; for a scorer that is simply no content.
		return &fulltext.ScoreResult{}, nil
	}
	return &fulltext.ScoreResult{
		Title:   result.Metadata.Title,
		Content: result.ContentNode,
	}, nil
}
