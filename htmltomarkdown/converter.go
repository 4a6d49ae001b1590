// Package htmltomarkdown renders extracted articles as Markdown.
package htmltomarkdown

import (
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/fulltext"
)

// Ensure Converter implements fulltext.Converter at compile time.
var _ fulltext.Converter = (*Converter)(nil)

// Converter wraps html-to-markdown with the CommonMark and table plugins.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// Convert transforms article HTML into Markdown.
func (c *Converter) Convert(html string, opts fulltext.ConvertOptions) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", fulltext.Errorf(fulltext.EINVALID, "empty HTML input")
	}

	var (
		md  string
		err error
	)
	if opts.BaseURL != "" {
		u, perr := url.Parse(opts.BaseURL)
		if perr != nil || u.Host == "" {
			return "", fulltext.Errorf(fulltext.EINVALID, "invalid base URL: %s", opts.BaseURL)
		}
		md, err = c.conv.ConvertString(html, converter.WithDomain(u.Scheme+"://"+u.Host))
	} else {
		md, err = c.conv.ConvertString(html)
	}
	if err != nil {
		return "", fulltext.Errorf(fulltext.EPARSE, "convert to markdown: %v", err)
	}

	if title := strings.TrimSpace(opts.Title); title != "" {
		md = "# " + title + "\n\n" + md
	}
	return md, nil
}
