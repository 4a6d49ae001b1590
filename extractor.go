package fulltext

import (
	"bytes"
	"time"

	"golang.org/x/net/html"
)

// ExtractResult holds the article recovered from one page. It is created
// fresh for every extraction and owns the parsed tree Body points into.
type ExtractResult struct {
	// Title is empty when no strategy found one.
	Title string

	// Authors in discovery order. Duplicates are kept.
	Authors []string

	// Language is the tag declared by the page, if any.
	Language string

	// Date is the zero time when no parseable date was found.
	Date time.Time

	// Body is the article content subtree. Nil on failure.
	Body *html.Node

	// Success reports whether a body was determined.
	Success bool

	// Rules is the rule set extraction ran with.
	Rules *RuleSet

	// Source reports how Rules was resolved.
	Source RuleSource
}

// ContentHTML renders the children of Body as markup.
func (r *ExtractResult) ContentHTML() string {
	if r == nil || r.Body == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := r.Body.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// Extractor locates the article inside a page.
type Extractor interface {
	// Extract runs the extraction cascade over raw UTF-8 markup. pageURL is
	// the effective URL of the page; its host selects the rule set. A
	// failed extraction is reported through Success, not through err;
	// err is reserved for markup that could not be parsed at all.
	Extract(rawHTML, pageURL string) (*ExtractResult, error)

	// SinglePageURL returns the absolute URL of an unpaginated variant of
	// the page when its rule set names one. itemDescription is the source
	// feed entry's description, searched by feed-targeted expressions.
	SinglePageURL(rawHTML, itemDescription, pageURL string) (string, bool)
}

// ScoreResult is what a Scorer found in a document.
type ScoreResult struct {
	Title   string
	Content *html.Node
}

// Scorer finds the most article-like subtree of a document without rule
// guidance. Scorers may mutate doc.
type Scorer interface {
	Score(doc *html.Node, pageURL string) (*ScoreResult, error)
}

// Cleaner removes decoration from content subtrees.
type Cleaner interface {
	// Prune strips elements unlikely to be content (forms, share widgets,
	// link-heavy blocks, tiny images, empty wrappers) from node.
	Prune(node *html.Node)

	// RemoveScripts strips script-bearing elements from node.
	RemoveScripts(node *html.Node)
}
