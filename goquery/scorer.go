// Package goquery implements the heuristic scorer, content cleaner and
// body formatter on top of github.com/PuerkitoBio/goquery.
package goquery

import (
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/xpath"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Ensure Scorer implements fulltext.Scorer and fulltext.Cleaner at compile time.
var (
	_ fulltext.Scorer  = (*Scorer)(nil)
	_ fulltext.Cleaner = (*Scorer)(nil)
)

var (
	unlikelyCandidates = regexp.MustCompile(`(?i)combx|comment|community|disqus|extra|foot|header|menu|remark|rss|shoutbox|sidebar|sponsor|ad-break|agegate|pagination|pager|popup|tweet|twitter`)
	maybeCandidate     = regexp.MustCompile(`(?i)and|article|body|column|main|shadow`)
	positiveWeight     = regexp.MustCompile(`(?i)article|body|content|entry|hentry|main|page|pagination|post|text|blog|story`)
	negativeWeight     = regexp.MustCompile(`(?i)combx|comment|com-|contact|foot|footer|footnote|masthead|media|meta|outbrain|promo|related|scroll|shoutbox|sidebar|sponsor|shopping|tags|tool|widget`)
	titleSeparators    = []string{" | ", " - ", " – ", " — ", " :: ", " » ", ": "}
)

// Minimum text length for a paragraph to count towards its ancestors.
const minParagraphLen = 25

// Scorer locates article content by text density.
type Scorer struct {
	// SiblingThreshold is the fraction of the top score a sibling needs to
	// be merged into the result.
	SiblingThreshold float64
}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{SiblingThreshold: 0.2}
}

// Score finds the title and the most article-like subtree of doc. It
// mutates doc: unlikely blocks are removed and the winning subtree is
// moved into a new container. Content is nil when nothing scored and
// the body holds no text.
func (s *Scorer) Score(doc *html.Node, _ string) (*fulltext.ScoreResult, error) {
	d := goquery.NewDocumentFromNode(doc)
	result := &fulltext.ScoreResult{Title: documentTitle(d)}

	d.Find("script, style, noscript, nav, aside, footer, form, iframe, object, embed, link, meta").Remove()
	removeUnlikely(d)

	scores := make(map[*html.Node]float64)
	var candidates []*html.Node
	score := func(n *html.Node) {
		if _, ok := scores[n]; !ok {
			scores[n] = initialScore(n)
			candidates = append(candidates, n)
		}
	}

	d.Find("p, pre, td, div").Each(func(_ int, sel *goquery.Selection) {
		n := sel.Get(0)
		if n.DataAtom == atom.Div && hasBlockChild(n) {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if len(text) < minParagraphLen || n.Parent == nil || n.Parent.Type != html.ElementNode {
			return
		}

		contentScore := 1 + float64(strings.Count(text, ",")) + math.Min(float64(len(text))/100, 3)

		parent := n.Parent
		score(parent)
		scores[parent] += contentScore
		if grand := parent.Parent; grand != nil && grand.Type == html.ElementNode {
			score(grand)
			scores[grand] += contentScore / 2
		}
	})

	var top *html.Node
	for _, n := range candidates {
		scores[n] *= 1 - linkDensity(n)
		if top == nil || scores[n] > scores[top] {
			top = n
		}
	}

	if top == nil || top.DataAtom == atom.Html {
		body := d.Find("body")
		if body.Length() == 0 || strings.TrimSpace(body.Text()) == "" {
			return result, nil
		}
		top = body.Get(0)
		scores[top] = 0
	}

	result.Content = s.gather(top, scores)
	s.Prune(result.Content)
	return result, nil
}

// gather moves the top candidate and its qualifying siblings into a new
// container.
func (s *Scorer) gather(top *html.Node, scores map[*html.Node]float64) *html.Node {
	container := xpath.CreateElement("div")
	if top.Parent == nil || top.DataAtom == atom.Body {
		for c := top.FirstChild; c != nil; {
			next := c.NextSibling
			xpath.Append(container, c)
			c = next
		}
		return container
	}

	threshold := math.Max(10, scores[top]*s.SiblingThreshold)

	var siblings []*html.Node
	for c := top.Parent.FirstChild; c != nil; c = c.NextSibling {
		siblings = append(siblings, c)
	}
	for _, sib := range siblings {
		if sib.Type != html.ElementNode {
			continue
		}
		keep := sib == top
		if sc, ok := scores[sib]; ok && sc >= threshold {
			keep = true
		}
		if !keep && sib.DataAtom == atom.P {
			text := strings.TrimSpace(textOf(sib))
			density := linkDensity(sib)
			switch {
			case len(text) > 80 && density < 0.25:
				keep = true
			case len(text) > 0 && density == 0 && strings.HasSuffix(text, "."):
				keep = true
			}
		}
		if keep {
			xpath.Append(container, sib)
		}
	}
	return container
}

func removeUnlikely(d *goquery.Document) {
	d.Find("*").Each(func(_ int, sel *goquery.Selection) {
		n := sel.Get(0)
		if n.Parent == nil || n.DataAtom == atom.Html || n.DataAtom == atom.Body || n.DataAtom == atom.Article {
			return
		}
		match := sel.AttrOr("class", "") + " " + sel.AttrOr("id", "")
		if unlikelyCandidates.MatchString(match) && !maybeCandidate.MatchString(match) {
			sel.Remove()
		}
	})
}

func initialScore(n *html.Node) float64 {
	var base float64
	switch n.DataAtom {
	case atom.Div, atom.Article:
		base = 5
	case atom.Pre, atom.Td, atom.Blockquote:
		base = 3
	case atom.Address, atom.Ol, atom.Ul, atom.Dl, atom.Dd, atom.Dt, atom.Li, atom.Form:
		base = -3
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Th:
		base = -5
	}
	return base + classWeight(n)
}

// classWeight scores class and id attributes against content conventions.
func classWeight(n *html.Node) float64 {
	var weight float64
	for _, attr := range []string{"class", "id"} {
		v := xpath.Attr(n, attr)
		if v == "" {
			continue
		}
		if negativeWeight.MatchString(v) {
			weight -= 25
		}
		if positiveWeight.MatchString(v) {
			weight += 25
		}
	}
	return weight
}

// linkDensity is the share of n's text that sits inside links.
func linkDensity(n *html.Node) float64 {
	total := len(strings.TrimSpace(textOf(n)))
	if total == 0 {
		return 0
	}
	var linked int
	goquery.NewDocumentFromNode(n).Find("a").Each(func(_ int, sel *goquery.Selection) {
		linked += len(strings.TrimSpace(sel.Text()))
	})
	return math.Min(1, float64(linked)/float64(total))
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.A, atom.Blockquote, atom.Dl, atom.Div, atom.Img, atom.Ol, atom.P, atom.Pre, atom.Table, atom.Ul, atom.Section, atom.Article, atom.Figure:
			return true
		}
	}
	return false
}

// documentTitle prefers a single h1 of reasonable length, then the title
// element with a trailing site name removed.
func documentTitle(d *goquery.Document) string {
	if h1 := d.Find("h1"); h1.Length() == 1 {
		text := collapseSpace(h1.Text())
		if n := len(text); n >= 10 && n <= 150 {
			return text
		}
	}
	return trimSiteName(collapseSpace(d.Find("title").First().Text()))
}

func trimSiteName(title string) string {
	for _, sep := range titleSeparators {
		i := strings.LastIndex(title, sep)
		if i <= 0 {
			continue
		}
		head := strings.TrimSpace(title[:i])
		if len(strings.Fields(head)) >= 2 {
			return head
		}
		return title
	}
	return title
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func textOf(n *html.Node) string {
	return xpath.Text(n)
}
