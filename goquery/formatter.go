package goquery

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/xpath"
	"golang.org/x/net/html"
)

// Ensure Formatter implements fulltext.Formatter at compile time.
var _ fulltext.Formatter = (*Formatter)(nil)

// Formatter renders extracted bodies: it narrows to an optional CSS
// selector, makes URLs absolute, applies the link mode and drops empty
// paragraphs.
type Formatter struct{}

// NewFormatter creates a new Formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders body. body is modified in place.
func (f *Formatter) Format(body *html.Node, opts fulltext.FormatOptions) (*fulltext.Formatted, error) {
	if body == nil {
		return nil, fulltext.Errorf(fulltext.EINVALID, "nothing to format")
	}
	sel := goquery.NewDocumentFromNode(body).Selection

	var matched bool
	if opts.Selector != "" {
		if match := sel.Find(opts.Selector).First(); match.Length() > 0 {
			body = match.Get(0)
			xpath.Remove(body)
			sel = goquery.NewDocumentFromNode(body).Selection
			matched = true
		}
	}

	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fulltext.Errorf(fulltext.EINVALID, "invalid base URL: %v", err)
		}
		base = u
		absolutize(sel, base)
	}

	switch opts.Links {
	case fulltext.LinksRemove:
		removeLinks(sel)
	case fulltext.LinksFootnotes:
		if base == nil || !strings.HasSuffix(base.Hostname(), "wikipedia.org") {
			addFootnotes(sel)
		}
	}

	removeEmptyParagraphs(sel)

	return &fulltext.Formatted{
		HTML:    xpath.OuterHTML(body),
		Text:    collapseSpace(xpath.Text(body)),
		Matched: matched,
	}, nil
}

var urlAttrs = map[string]string{
	"a":      "href",
	"img":    "src",
	"iframe": "src",
	"embed":  "src",
	"source": "src",
	"video":  "poster",
	"audio":  "src",
}

func absolutize(sel *goquery.Selection, base *url.URL) {
	for tag, attr := range urlAttrs {
		sel.Find(tag + "[" + attr + "]").Each(func(_ int, e *goquery.Selection) {
			v, _ := e.Attr(attr)
			if isNonHTTPLink(v) || strings.HasPrefix(strings.TrimSpace(v), "#") {
				return
			}
			if resolved := absoluteURL(base, v); resolved != "" {
				e.SetAttr(attr, resolved)
			}
		})
	}
}

func removeLinks(sel *goquery.Selection) {
	sel.Find("a").Each(func(_ int, e *goquery.Selection) {
		e.ReplaceWithSelection(e.Contents())
	})
}

// addFootnotes replaces each outbound link with its text followed by a
// reference number, and lists the targets at the end of the body.
func addFootnotes(sel *goquery.Selection) {
	var targets []string
	numbers := make(map[string]int)

	sel.Find("a[href]").Each(func(_ int, e *goquery.Selection) {
		href := strings.TrimSpace(e.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || isNonHTTPLink(href) {
			return
		}
		n, ok := numbers[href]
		if !ok {
			targets = append(targets, href)
			n = len(targets)
			numbers[href] = n
		}
		e.AfterHtml("<sup>[" + strconv.Itoa(n) + "]</sup>")
		e.ReplaceWithSelection(e.Contents())
	})

	if len(targets) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(`<div class="footnotes"><hr/><ol>`)
	for _, href := range targets {
		escaped := html.EscapeString(href)
		b.WriteString(`<li><a href="` + escaped + `">` + escaped + `</a></li>`)
	}
	b.WriteString(`</ol></div>`)
	sel.First().AppendHtml(b.String())
}

func removeEmptyParagraphs(sel *goquery.Selection) {
	sel.Find("p").Each(func(_ int, e *goquery.Selection) {
		if strings.TrimSpace(e.Text()) == "" && e.Children().Length() == 0 {
			e.Remove()
		}
	})
}
