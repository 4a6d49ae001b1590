package mock

import "github.com/fwojciec/fulltext"

var _ fulltext.Converter = (*Converter)(nil)

// Converter is a mock implementation of fulltext.Converter.
type Converter struct {
	ConvertFn func(html string, opts fulltext.ConvertOptions) (string, error)
}

func (c *Converter) Convert(html string, opts fulltext.ConvertOptions) (string, error) {
	return c.ConvertFn(html, opts)
}
