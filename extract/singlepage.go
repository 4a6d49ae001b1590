package extract

import (
	"net/url"
	"strings"

	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/xpath"
	"golang.org/x/net/html"
)

// SinglePageURL evaluates the rule set's single-page link expressions
// against rawHTML, or, when the rule set only targets the feed, against
// itemDescription. The link is resolved against pageURL and reported only
// when it differs from pageURL.
func (e *Extractor) SinglePageURL(rawHTML, itemDescription, pageURL string) (string, bool) {
	rules, _ := fulltext.ResolveRuleSet(e.rules, e.fingerprints, hostOf(pageURL), rawHTML)

	exprs, markup := rules.SinglePageLink, rawHTML
	if len(exprs) == 0 {
		exprs, markup = rules.SinglePageLinkInFeed, itemDescription
	}
	if len(exprs) == 0 || strings.TrimSpace(markup) == "" {
		return "", false
	}

	doc, err := xpath.Parse(markup, xpath.WithParser(rules.Parser))
	if err != nil {
		return "", false
	}

	var link string
	for _, expr := range exprs {
		if link = linkFrom(doc.Evaluate(expr, nil)); link != "" {
			break
		}
	}
	if link == "" {
		return "", false
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref).String()
	if resolved == pageURL {
		return "", false
	}
	return resolved, true
}

// linkFrom takes the link out of an expression result: the text of a
// string result, the href of the first linking element, or the value of
// the first non-empty attribute.
func linkFrom(m xpath.Match) string {
	switch m.Kind {
	case xpath.StringMatch:
		return strings.TrimSpace(m.Text)
	case xpath.NodeSetMatch:
		for _, n := range m.Nodes {
			if n.Type == html.ElementNode {
				if href := strings.TrimSpace(xpath.Attr(n, "href")); href != "" {
					return href
				}
				continue
			}
			if v := strings.TrimSpace(n.Data); v != "" {
				return v
			}
		}
	}
	return ""
}
