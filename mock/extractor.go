package mock

import (
	"github.com/fwojciec/fulltext"
	"golang.org/x/net/html"
)

var _ fulltext.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of fulltext.Extractor.
type Extractor struct {
	ExtractFn       func(rawHTML, pageURL string) (*fulltext.ExtractResult, error)
	SinglePageURLFn func(rawHTML, itemDescription, pageURL string) (string, bool)
}

func (e *Extractor) Extract(rawHTML, pageURL string) (*fulltext.ExtractResult, error) {
	return e.ExtractFn(rawHTML, pageURL)
}

func (e *Extractor) SinglePageURL(rawHTML, itemDescription, pageURL string) (string, bool) {
	if e.SinglePageURLFn == nil {
		return "", false
	}
	return e.SinglePageURLFn(rawHTML, itemDescription, pageURL)
}

var _ fulltext.Scorer = (*Scorer)(nil)

// Scorer is a mock implementation of fulltext.Scorer.
type Scorer struct {
	ScoreFn func(doc *html.Node, pageURL string) (*fulltext.ScoreResult, error)
}

func (s *Scorer) Score(doc *html.Node, pageURL string) (*fulltext.ScoreResult, error) {
	return s.ScoreFn(doc, pageURL)
}

var _ fulltext.Cleaner = (*Cleaner)(nil)

// Cleaner is a mock implementation of fulltext.Cleaner.
type Cleaner struct {
	PruneFn         func(node *html.Node)
	RemoveScriptsFn func(node *html.Node)
}

func (c *Cleaner) Prune(node *html.Node) {
	c.PruneFn(node)
}

func (c *Cleaner) RemoveScripts(node *html.Node) {
	c.RemoveScriptsFn(node)
}

var _ fulltext.Formatter = (*Formatter)(nil)

// Formatter is a mock implementation of fulltext.Formatter.
type Formatter struct {
	FormatFn func(body *html.Node, opts fulltext.FormatOptions) (*fulltext.Formatted, error)
}

func (f *Formatter) Format(body *html.Node, opts fulltext.FormatOptions) (*fulltext.Formatted, error) {
	return f.FormatFn(body, opts)
}
