// Package extract implements the extraction cascade: site rules first,
// then hNews microformats, then single-element conventions, then the
// heuristic scorer.
package extract

import (
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/xpath"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Ensure Extractor implements fulltext.Extractor at compile time.
var _ fulltext.Extractor = (*Extractor)(nil)

// Probes for the page language, in order.
var languageProbes = []string{
	"//html[@lang]/@lang",
	"//body[@lang]/@lang",
	"//meta[@name='DC.language']/@content",
	"//meta[translate(@http-equiv,'CONTENTLANGUAGE','contentlanguage')='content-language']/@content",
}

// Classes marking blocks publishers ask readers to skip.
var ignoreClasses = []string{"entry-unrelated", "instapaper_ignore"}

const hiddenStyle = "//*[contains(translate(@style,'ABCDEFGHIJKLMNOPQRSTUVWXYZ ','abcdefghijklmnopqrstuvwxyz'),'display:none') or " +
	"contains(translate(@style,'ABCDEFGHIJKLMNOPQRSTUVWXYZ ','abcdefghijklmnopqrstuvwxyz'),'visibility:hidden')]"

// Extractor runs the extraction cascade over a page.
type Extractor struct {
	rules        fulltext.RuleStore
	fingerprints fulltext.FingerprintTable
	scorer       fulltext.Scorer
	cleaner      fulltext.Cleaner
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFingerprints sets the fingerprint table consulted when no rule file
// matches the page host.
func WithFingerprints(table fulltext.FingerprintTable) Option {
	return func(e *Extractor) {
		e.fingerprints = table
	}
}

// WithCleaner sets the cleaner used to prune matched content and strip
// scripts. Without one, content is left as matched.
func WithCleaner(c fulltext.Cleaner) Option {
	return func(e *Extractor) {
		e.cleaner = c
	}
}

// NewExtractor creates a new Extractor. rules may be nil, in which case
// every page is handled by the default rule set.
func NewExtractor(rules fulltext.RuleStore, scorer fulltext.Scorer, opts ...Option) *Extractor {
	e := &Extractor{
		rules:  rules,
		scorer: scorer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract locates the article in rawHTML. If the tidy pass was used and
// nothing was found, the cascade runs once more on untidied markup.
func (e *Extractor) Extract(rawHTML, pageURL string) (*fulltext.ExtractResult, error) {
	rules, source := fulltext.ResolveRuleSet(e.rules, e.fingerprints, hostOf(pageURL), rawHTML)

	for _, r := range rules.Replace {
		if r.Find != "" {
			rawHTML = strings.ReplaceAll(rawHTML, r.Find, r.Replace)
		}
	}

	result, tidied, err := e.run(rawHTML, pageURL, rules, rules.Tidy)
	if err != nil {
		return nil, err
	}
	if !result.Success && tidied {
		if result, _, err = e.run(rawHTML, pageURL, rules, false); err != nil {
			return nil, err
		}
	}

	result.Rules = rules
	result.Source = source
	return result, nil
}

// run is one pass of the cascade. tidied reports whether the tidy pass
// changed the markup.
func (e *Extractor) run(rawHTML, pageURL string, rules *fulltext.RuleSet, tidy bool) (*fulltext.ExtractResult, bool, error) {
	doc, err := xpath.Parse(rawHTML, xpath.WithParser(rules.Parser), xpath.WithTidy(tidy))
	if err != nil {
		return nil, false, err
	}

	p := &pass{doc: doc, rules: rules, extractor: e, result: &fulltext.ExtractResult{}}
	if p.skip() {
		return p.result, doc.Tidied, nil
	}

	p.ruleTitle()
	p.ruleAuthor()
	p.language()
	p.ruleDate()
	p.stripNoise()
	p.ruleBody()

	canDetect := func(exprs []string) bool {
		return len(exprs) == 0 || rules.AutodetectOnFailure
	}
	p.detectTitle = !p.haveTitle && canDetect(rules.Title)
	p.detectBody = p.body == nil && canDetect(rules.Body)
	p.detectAuthor = len(p.result.Authors) == 0 && canDetect(rules.Author)
	p.detectDate = p.result.Date.IsZero() && canDetect(rules.Date)

	if p.detectTitle || p.detectBody {
		p.hNews()
	}
	p.singleElementConventions()
	if p.detectTitle || p.detectBody {
		p.heuristic(pageURL)
	}
	p.finish()

	return p.result, doc.Tidied, nil
}

// pass holds the state of one cascade run over one parsed document.
type pass struct {
	doc       *xpath.Document
	rules     *fulltext.RuleSet
	extractor *Extractor
	result    *fulltext.ExtractResult

	haveTitle bool
	body      *html.Node

	detectTitle  bool
	detectBody   bool
	detectAuthor bool
	detectDate   bool
}

func (p *pass) skip() bool {
	for _, expr := range p.rules.SkipEntry {
		if p.doc.Evaluate(expr, nil).Found() {
			return true
		}
	}
	return false
}

func (p *pass) ruleTitle() {
	for _, expr := range p.rules.Title {
		m := p.doc.Evaluate(expr, nil)
		switch m.Kind {
		case xpath.StringMatch:
			p.setTitle(m.Text)
			return
		case xpath.NodeSetMatch:
			p.setTitle(xpath.Text(m.First()))
			xpath.Remove(m.First())
			return
		}
	}
}

func (p *pass) setTitle(title string) {
	p.result.Title = collapseSpace(title)
	p.haveTitle = true
}

func (p *pass) ruleAuthor() {
	for _, expr := range p.rules.Author {
		m := p.doc.Evaluate(expr, nil)
		switch m.Kind {
		case xpath.StringMatch:
			p.addAuthor(m.Text)
		case xpath.NodeSetMatch:
			for _, n := range m.Nodes {
				if n.Type == html.ElementNode && n.Parent == nil {
					continue
				}
				p.addAuthor(xpath.Text(n))
			}
		}
		if len(p.result.Authors) > 0 {
			return
		}
	}
}

func (p *pass) addAuthor(name string) {
	if name = collapseSpace(name); name != "" {
		p.result.Authors = append(p.result.Authors, name)
	}
}

func (p *pass) language() {
	for _, expr := range languageProbes {
		m := p.doc.Evaluate(expr, nil)
		switch m.Kind {
		case xpath.StringMatch:
			p.result.Language = strings.TrimSpace(m.Text)
		case xpath.NodeSetMatch:
			for _, n := range m.Nodes {
				if lang := strings.TrimSpace(xpath.Text(n)); lang != "" {
					p.result.Language = lang
					break
				}
			}
		}
		if p.result.Language != "" {
			return
		}
	}
}

func (p *pass) ruleDate() {
	for _, expr := range p.rules.Date {
		var text string
		m := p.doc.Evaluate(expr, nil)
		switch m.Kind {
		case xpath.StringMatch:
			text = m.Text
		case xpath.NodeSetMatch:
			text = xpath.Text(m.First())
		default:
			continue
		}
		if t, ok := parseDate(text); ok {
			p.result.Date = t
			return
		}
	}
}

func (p *pass) stripNoise() {
	for _, expr := range p.rules.Strip {
		xpath.RemoveAll(p.doc.Query(expr, nil))
	}
	for _, s := range p.rules.StripIDOrClass {
		s = strings.NewReplacer("'", "", `"`, "").Replace(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		xpath.RemoveAll(p.doc.Query("//*["+tokenTest("class", s)+" or "+tokenTest("id", s)+"]", nil))
	}
	for _, s := range p.rules.StripImageSrc {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		xpath.RemoveAll(p.doc.Query("//img[contains(@src,"+xpath.Literal(s)+")]", nil))
	}

	tests := make([]string, 0, len(ignoreClasses))
	for _, class := range ignoreClasses {
		tests = append(tests, xpath.ClassToken(class))
	}
	xpath.RemoveAll(p.doc.Query("//*["+strings.Join(tests, " or ")+"]", nil))
	xpath.RemoveAll(p.doc.Query(hiddenStyle, nil))
}

func (p *pass) ruleBody() {
	for _, expr := range p.rules.Body {
		nodes := p.doc.Query(expr, nil)
		if len(nodes) == 0 {
			continue
		}
		if len(nodes) == 1 {
			p.body = nodes[0]
			p.prune(p.body)
			return
		}
		if body := p.merge(nodes); body.FirstChild != nil {
			p.body = body
			return
		}
	}
}

// merge moves nodes into a new container, skipping any node that lies
// inside one already added. Each accepted node is pruned on its own.
func (p *pass) merge(nodes []*html.Node) *html.Node {
	container := xpath.CreateElement("div")
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.Parent == nil {
			continue
		}
		nested := false
		for added := container.FirstChild; added != nil; added = added.NextSibling {
			if xpath.IsDescendant(added, n) {
				nested = true
				break
			}
		}
		if nested {
			continue
		}
		p.prune(n)
		xpath.Append(container, n)
	}
	return container
}

func (p *pass) prune(n *html.Node) {
	if p.rules.Prune && p.extractor.cleaner != nil && n.Type == html.ElementNode {
		p.extractor.cleaner.Prune(n)
	}
}

// hNews looks inside the first hentry for entry-title, published,
// author vcard and entry-content markers.
func (p *pass) hNews() {
	entries := p.doc.Query("//*["+xpath.ClassToken("hentry")+"]", nil)
	if len(entries) == 0 {
		return
	}
	hentry := entries[0]

	if p.detectTitle {
		if nodes := p.doc.Query(".//*["+xpath.ClassToken("entry-title")+"]", hentry); len(nodes) > 0 {
			p.setTitle(xpath.Text(nodes[0]))
			xpath.Remove(nodes[0])
			p.detectTitle = false
		}
	}

	if p.detectDate {
		if nodes := p.doc.Query(".//time[@pubdate] | .//abbr["+xpath.ClassToken("published")+"]", hentry); len(nodes) > 0 {
			if t, ok := parseDate(dateText(nodes[0])); ok {
				p.result.Date = t
				p.detectDate = false
			}
		}
	}

	if p.detectAuthor {
		expr := ".//*[" + xpath.ClassToken("vcard") + " and (" + xpath.ClassToken("author") + " or " + xpath.ClassToken("byline") + ")]"
		if nodes := p.doc.Query(expr, hentry); len(nodes) > 0 {
			if names := p.doc.Query(".//*["+xpath.ClassToken("fn")+"]", nodes[0]); len(names) > 0 {
				for _, fn := range names {
					p.addAuthor(xpath.Text(fn))
				}
			} else {
				p.addAuthor(xpath.Text(nodes[0]))
			}
			p.detectAuthor = len(p.result.Authors) == 0
		}
	}

	if p.detectBody {
		nodes := p.doc.Query(".//*["+xpath.ClassToken("entry-content")+"]", hentry)
		switch {
		case len(nodes) == 1:
			if hasContent(nodes[0]) {
				p.body = nodes[0]
				p.prune(p.body)
				p.detectBody = false
			}
		case len(nodes) > 1:
			if merged := p.merge(nodes); hasContent(merged) {
				p.body = merged
				p.detectBody = false
			}
		}
	}
}

// singleElementConventions applies markers that are only trusted when
// exactly one element carries them; several usually mean a listing page.
func (p *pass) singleElementConventions() {
	if p.detectTitle {
		if nodes := p.doc.Query("//*["+xpath.ClassToken("instapaper_title")+"]", nil); len(nodes) == 1 {
			p.setTitle(xpath.Text(nodes[0]))
			xpath.Remove(nodes[0])
			p.detectTitle = false
		}
	}

	if p.detectBody {
		if nodes := p.doc.Query("//*["+xpath.ClassToken("instapaper_body")+"]", nil); len(nodes) == 1 {
			p.body = nodes[0]
			p.prune(p.body)
			p.detectBody = false
		}
	}

	if p.detectAuthor {
		if nodes := p.doc.Query("//a[contains(concat(' ',normalize-space(@rel),' '),' author ')]", nil); len(nodes) == 1 {
			if name := collapseSpace(xpath.Text(nodes[0])); name != "" {
				p.result.Authors = append(p.result.Authors, name)
				p.detectAuthor = false
			}
		}
	}

	if p.detectDate {
		if nodes := p.doc.Query("//time[@pubdate]", nil); len(nodes) == 1 {
			if t, ok := parseDate(dateText(nodes[0])); ok {
				p.result.Date = t
				p.detectDate = false
			}
		}
	}
}

// heuristic hands whatever is still missing to the scorer. An already
// accepted body is cloned first so the scorer cannot disturb it.
func (p *pass) heuristic(pageURL string) {
	if p.body != nil {
		p.body = xpath.Clone(p.body)
	}
	if p.extractor.scorer == nil {
		return
	}

	scored, err := p.extractor.scorer.Score(p.doc.Root, pageURL)
	if err != nil || scored == nil {
		return
	}

	if p.detectTitle {
		p.setTitle(scored.Title)
	}
	if p.detectBody && scored.Content != nil {
		body := scored.Content
		if only := onlyElementChild(body); only != nil {
			body = only
		}
		p.body = body
		p.prune(p.body)
	}
}

// finish strips scripts, drops a leading heading that repeats the title
// and decides success.
func (p *pass) finish() {
	if p.body == nil || !hasContent(p.body) {
		return
	}

	if p.extractor.cleaner != nil {
		p.extractor.cleaner.RemoveScripts(p.body)
	}

	if p.result.Title != "" {
		if first := xpath.FirstElementChild(p.body); first != nil && isHeading(first) &&
			strings.EqualFold(collapseSpace(xpath.Text(first)), p.result.Title) {
			xpath.Remove(first)
		}
	}

	p.result.Body = p.body
	p.result.Success = true
}

// tokenTest matches value as a whole word, or run of words, of attr.
func tokenTest(attr, value string) string {
	return "contains(concat(' ',normalize-space(@" + attr + "),' '),concat(' '," + xpath.Literal(value) + ",' '))"
}

// parseDate parses free-form date text. Text that does not parse is
// reported as not found.
func parseDate(text string) (time.Time, bool) {
	text = strings.Trim(text, "; \t\n\r\x00\x0B")
	if text == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(text)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// dateText prefers the machine-readable datetime or title attribute.
func dateText(n *html.Node) string {
	for _, attr := range []string{"datetime", "title"} {
		if v := strings.TrimSpace(xpath.Attr(n, attr)); v != "" {
			if _, ok := parseDate(v); ok {
				return v
			}
		}
	}
	return xpath.Text(n)
}

// hasContent reports whether n carries text or media.
func hasContent(n *html.Node) bool {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data) != ""
	}
	if isMedia(n) || strings.TrimSpace(xpath.Text(n)) != "" {
		return true
	}
	found := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
			if isMedia(c) {
				found = true
				return
			}
			walk(c)
		}
	}
	walk(n)
	return found
}

func isMedia(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Img, atom.Video, atom.Audio, atom.Iframe, atom.Embed, atom.Object:
		return true
	}
	return false
}

func isHeading(n *html.Node) bool {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

// onlyElementChild returns the single child of n when that child is an
// element and n has no other children.
func onlyElementChild(n *html.Node) *html.Node {
	if c := n.FirstChild; c != nil && c == n.LastChild && c.Type == html.ElementNode {
		return c
	}
	return nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
