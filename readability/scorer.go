// Package readability adapts go-readability as an alternative content
// scorer.
package readability

import (
	"net/url"

	"github.com/fwojciec/fulltext"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Ensure Scorer implements fulltext.Scorer at compile time.
var _ fulltext.Scorer = (*Scorer)(nil)

// Scorer finds article content with the Arc90 readability algorithm.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns the readability title and content of doc. A document
// readability cannot make sense of yields an empty result, not an error.
func (s *Scorer) Score(doc *html.Node, pageURL string) (*fulltext.ScoreResult, error) {
	if doc == nil {
		return nil, fulltext.Errorf(fulltext.EINVALID, "nil document")
	}

	var u *url.URL
	if pageURL != "" {
		parsed, err := url.Parse(pageURL)
		if err != nil {
			return nil, fulltext.Errorf(fulltext.EINVALID, "invalid page URL: %s", pageURL)
		}
		u = parsed
	}

	article, err := readability.FromDocument(doc, u)
	if err != nil {
		return &fulltext.ScoreResult{}, nil
	}
	return &fulltext.ScoreResult{
		Title:   article.Title,
		Content: article.Node,
	}, nil
}
