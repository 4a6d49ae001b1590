package fulltext

// ConvertOptions controls Markdown conversion.
type ConvertOptions struct {
	// BaseURL resolves relative links and image sources.
	BaseURL string
	// Title, when set, is emitted as a leading level-one heading.
	Title string
}

// Converter converts extracted article HTML to Markdown.
type Converter interface {
	Convert(html string, opts ConvertOptions) (string, error)
}
