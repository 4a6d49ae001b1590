package fulltext

import "golang.org/x/net/html"

// LinkMode controls how links inside article bodies are emitted.
type LinkMode string

const (
	LinksPreserve  LinkMode = "preserve"
	LinksFootnotes LinkMode = "footnotes"
	LinksRemove    LinkMode = "remove"
)

// FormatOptions configures final body rendering.
type FormatOptions struct {
	// BaseURL resolves relative href and src attributes.
	BaseURL string

	Links LinkMode

	// Selector, when set, narrows the body to the first element matching
	// the CSS selector.
	Selector string
}

// Formatted is a rendered article body.
type Formatted struct {
	HTML string

	// Text is the visible text, used for language detection.
	Text string

	// Matched reports whether FormatOptions.Selector matched. It is always
	// false without a selector.
	Matched bool
}

// Formatter renders extracted bodies for output.
type Formatter interface {
	Format(body *html.Node, opts FormatOptions) (*Formatted, error)
}
