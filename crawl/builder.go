// Package crawl builds full-text feeds. It fetches a source feed, warms
// the fetch agent with every item permalink, then extracts items one at a
// time in feed order.
package crawl

import (
	"context"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/xpath"
	"github.com/google/uuid"
	nethtml "golang.org/x/net/html"
)

// Ensure Builder implements fulltext.FeedBuilder at compile time.
var _ fulltext.FeedBuilder = (*Builder)(nil)

// Defaults for Options.
const (
	DefaultEntries = 5
	MaxEntries     = 10
	ErrorMessage   = "[unable to retrieve full-text content]"
	Generator      = "fulltext"
)

// languageSampleLen bounds the text handed to language detection.
const languageSampleLen = 500

// Options holds deployment-wide feed settings.
type Options struct {
	DefaultEntries int
	MaxEntries     int

	// ExcludeOnFailure drops failed items for every request, regardless
	// of FeedRequest.ExcludeOnFailure.
	ExcludeOnFailure bool

	ErrorMessage string

	// MessageToPrepend and MessageToAppend wrap successfully extracted
	// bodies. {url} and {effective-url} are substituted.
	MessageToPrepend string
	MessageToAppend  string

	KeepEnclosures      bool
	RewriteRelativeURLs bool

	Policy       fulltext.URLPolicy
	ContentTypes fulltext.ContentTypeRules
	Generator    string
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		DefaultEntries:      DefaultEntries,
		MaxEntries:          MaxEntries,
		ErrorMessage:        ErrorMessage,
		KeepEnclosures:      true,
		RewriteRelativeURLs: true,
		ContentTypes:        fulltext.DefaultContentTypeRules(),
		Generator:           Generator,
	}
}

// ProgressEvent reports progress during a build.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	URL       string
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressSkipped
	ProgressFinished
)

// ProgressFunc is a callback for reporting build progress.
type ProgressFunc func(event ProgressEvent)

// Builder orchestrates feed retrieval, extraction and formatting.
type Builder struct {
	// Fetcher retrieves article pages. It should identify as a browser.
	Fetcher fulltext.Fetcher

	// Source retrieves the source feed. Some feed hosts serve HTML to
	// browsers, so this should identify as a machine client. Defaults to
	// Fetcher.
	Source fulltext.Fetcher

	Feeds     fulltext.FeedParser
	Extractor fulltext.Extractor
	Formatter fulltext.Formatter

	// Cleaner, if set, strips scripts from pages narrowed by a pattern
	// without automatic extraction.
	Cleaner fulltext.Cleaner

	// Detector, if set, is used by the detecting language modes.
	Detector fulltext.LanguageDetector

	Options     Options
	RetryDelays []time.Duration
	Progress    ProgressFunc
	Logger      *slog.Logger
}

// pattern is a parsed FeedRequest.Pattern.
type pattern struct {
	auto     bool
	selector string
}

func parsePattern(s string) pattern {
	s = strings.TrimSpace(s)
	if s == "" || s == "auto" {
		return pattern{auto: true}
	}
	first, rest, _ := strings.Cut(s, " ")
	if first == "auto" {
		return pattern{auto: true, selector: strings.TrimSpace(rest)}
	}
	return pattern{selector: s}
}

// build is the state of one Build call.
type build struct {
	*Builder
	req     fulltext.FeedRequest
	pattern pattern
	feed    *fulltext.Feed
	dummy   bool
	logger  *slog.Logger
}

// Build fetches req.URL and returns its full-text version. Failures of
// individual items never fail the build; they are reported in-band or,
// with exclusion enabled, by dropping the item.
func (b *Builder) Build(ctx context.Context, req fulltext.FeedRequest) (*fulltext.OutputFeed, error) {
	if err := b.Options.Policy.Check(req.URL); err != nil {
		return nil, err
	}

	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &build{
		Builder: b,
		req:     req,
		pattern: parsePattern(req.Pattern),
		logger:  logger.With("batch", uuid.NewString(), "source", req.URL),
	}

	if !req.HTMLOnly {
		feed, err := s.fetchFeed(ctx)
		if err != nil {
			return nil, err
		}
		s.feed = feed
	}
	if s.feed == nil {
		s.dummy = true
		s.feed = dummyFeed(req.URL)
	} else if len(s.feed.Entries) == 0 {
		return nil, fulltext.Errorf(fulltext.ENOTFOUND, "no feed items found")
	}

	entries := s.feed.Entries
	if limit := s.limit(); len(entries) > limit {
		entries = entries[:limit]
	}

	out := &fulltext.OutputFeed{
		Title:       s.feed.Title,
		Description: s.feed.Description,
		Link:        s.feed.Link,
		Language:    s.feed.Language,
		ImageURL:    s.feed.ImageURL,
		Generator:   b.Options.Generator,
	}

	var urls []string
	for _, e := range entries {
		if p := permalink(e); p != "" && b.Options.Policy.Check(p) == nil {
			urls = append(urls, p)
		}
	}
	b.Fetcher.Prefetch(ctx, urls)

	s.progress(ProgressEvent{Type: ProgressStarted, Total: len(entries)})
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		article, title, err := s.item(ctx, e)
		event := ProgressEvent{Completed: i + 1, Total: len(entries), URL: e.Permalink, Error: err}
		switch {
		case article == nil:
			event.Type = ProgressSkipped
		case err != nil:
			event.Type = ProgressFailed
		default:
			event.Type = ProgressCompleted
		}
		s.progress(event)

		if s.dummy {
			out.Title = title
			if article != nil {
				article.Title = title
			}
		}
		if article != nil {
			out.Articles = append(out.Articles, article)
		}
	}
	s.progress(ProgressEvent{Type: ProgressFinished, Completed: len(entries), Total: len(entries)})
	return out, nil
}

// fetchFeed retrieves and parses the source. A response that is not a feed
// yields a nil feed and no error.
func (s *build) fetchFeed(ctx context.Context) (*fulltext.Feed, error) {
	source := s.Source
	if source == nil {
		source = s.Fetcher
	}
	delays := s.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	fetch := func(ctx context.Context, u string) (*fulltext.FetchResponse, error) {
		resp, err := source.Get(ctx, u, true)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fulltext.Errorf(fulltext.EFETCH, "%s: status %d", u, resp.StatusCode)
		}
		return resp, nil
	}

	resp, err := FetchWithRetry(ctx, s.req.URL, fetch, s.logger.Debug, delays)
	if err != nil {
		return nil, err
	}
	feed, err := s.Feeds.Parse(ctx, resp.Body)
	if err != nil {
		s.logger.Debug("not a feed, treating as a single page", "err", err)
		return nil, nil
	}
	return feed, nil
}

func (s *build) limit() int {
	if s.dummy {
		return 1
	}
	if s.req.Max <= 0 {
		return max(s.Options.DefaultEntries, 1)
	}
	if s.Options.MaxEntries > 0 {
		return min(s.req.Max, s.Options.MaxEntries)
	}
	return s.req.Max
}

func (s *build) progress(e ProgressEvent) {
	if s.Progress != nil {
		s.Progress(e)
	}
}

func (s *build) excludeOnFailure() bool {
	return s.req.ExcludeOnFailure || s.Options.ExcludeOnFailure
}

// page is what an item resolved to before serialization.
type page struct {
	effectiveURL string
	body         string
	format       string
	title        string
	sample       string
	declared     string
	extracted    *fulltext.ExtractResult
}

// item processes one entry. It returns a nil article when the entry is
// dropped, and a non-nil err alongside an article when the entry failed
// and is reported in-band. title is the extracted title, used by the
// single-page feed.
func (s *build) item(ctx context.Context, e *fulltext.Entry) (*fulltext.Article, string, error) {
	link := permalink(e)
	if link != "" {
		if err := s.Options.Policy.Check(link); err != nil {
			s.logger.Info("item skipped", "url", link, "err", fulltext.ErrorMessage(err))
			return nil, "", err
		}
	}

	p, err := s.resolve(ctx, link, e.Description)
	if p == nil {
		return nil, "", err
	}
	if err != nil {
		s.logger.Warn("item failed", "url", link, "err", err)
		if s.excludeOnFailure() {
			return nil, p.title, err
		}
		p.body = s.Options.ErrorMessage + e.Description
	}

	a := &fulltext.Article{
		Title:        e.Title,
		Description:  p.body,
		GUID:         e.Permalink,
		Permalink:    link,
		Date:         e.Date,
		Authors:      e.Authors,
		Format:       p.format,
		EffectiveURL: StripTracking(link),
	}
	if p.effectiveURL != "" {
		a.EffectiveURL = StripTracking(p.effectiveURL)
	}
	if x := p.extracted; x != nil {
		if a.Date.IsZero() {
			a.Date = x.Date
		}
		if len(a.Authors) == 0 {
			a.Authors = x.Authors
		}
	}
	a.Language = s.language(p)
	if s.Options.KeepEnclosures {
		for _, enc := range e.Enclosures {
			if enc.URL != "" {
				a.Enclosures = append(a.Enclosures, enc)
			}
		}
	}
	return a, p.title, err
}

// resolve fetches and extracts one permalink. A nil page means the item
// is dropped. A page with an error is a failure; its fields other than
// body are still meaningful.
func (s *build) resolve(ctx context.Context, link, description string) (*page, error) {
	p := &page{}
	if link == "" {
		return p, fulltext.Errorf(fulltext.EINVALID, "item has no permalink")
	}

	resp, err := s.Fetcher.Get(ctx, link, true)
	if err != nil {
		return p, err
	}
	if !resp.Acceptable() {
		return p, fulltext.Errorf(fulltext.EFETCH, "%s: status %d", link, resp.StatusCode)
	}
	p.effectiveURL = resp.EffectiveURL
	if p.effectiveURL == "" {
		p.effectiveURL = link
	}
	if err := s.Options.Policy.Check(p.effectiveURL); err != nil {
		s.logger.Info("item skipped", "url", p.effectiveURL, "err", fulltext.ErrorMessage(err))
		return nil, err
	}

	mediaType := resp.MediaType()
	if rule, ok := s.Options.ContentTypes.Lookup(mediaType); ok {
		switch rule.Action {
		case fulltext.ActionExclude:
			s.logger.Debug("item excluded by content type", "url", p.effectiveURL, "type", mediaType)
			return nil, nil
		case fulltext.ActionLink:
			p.format = mediaType
			p.title = rule.Name
			p.body = linkBody(p.effectiveURL, mediaType, rule.Name)
			return p, nil
		}
	}

	markup := cleanMarkup(string(resp.Body))
	if s.pattern.auto {
		if single, ok := s.singlePage(ctx, markup, description, p.effectiveURL); ok {
			markup = cleanMarkup(string(single.Body))
			p.effectiveURL = single.EffectiveURL
		}
	}

	var (
		content *nethtml.Node
		success bool
	)
	if s.pattern.auto {
		result, err := s.Extractor.Extract(markup, p.effectiveURL)
		if err != nil {
			return p, err
		}
		p.extracted = result
		p.title = result.Title
		p.declared = result.Language
		content, success = result.Body, result.Success
	} else {
		content = wholePage(markup)
		if content != nil && s.Cleaner != nil {
			s.Cleaner.RemoveScripts(content)
		}
	}
	if content == nil {
		return p, fulltext.Errorf(fulltext.EPARSE, "no content found at %s", p.effectiveURL)
	}

	opts := fulltext.FormatOptions{
		Links:    s.req.Links,
		Selector: s.pattern.selector,
	}
	if s.Options.RewriteRelativeURLs {
		opts.BaseURL = p.effectiveURL
	}
	formatted, err := s.Formatter.Format(content, opts)
	if err != nil {
		return p, err
	}
	if formatted.Matched {
		success = true
	}
	if !success {
		return p, fulltext.Errorf(fulltext.EPARSE, "no content found at %s", p.effectiveURL)
	}

	p.sample = LanguageSample(formatted.Text)
	p.body = s.substitute(s.Options.MessageToPrepend, link, p.effectiveURL) +
		formatted.HTML +
		s.substitute(s.Options.MessageToAppend, link, p.effectiveURL)
	return p, nil
}

// singlePage follows the rule set's single-page link, if any. It makes at
// most one request and never retries.
func (s *build) singlePage(ctx context.Context, markup, description, pageURL string) (*fulltext.FetchResponse, bool) {
	target, ok := s.Extractor.SinglePageURL(markup, description, pageURL)
	if !ok || target == pageURL {
		return nil, false
	}
	resp, err := s.Fetcher.Get(fulltext.WithReferer(ctx, pageURL), target, true)
	if err != nil {
		s.logger.Debug("single page fetch failed", "url", target, "err", err)
		return nil, false
	}
	if resp.StatusCode >= 300 {
		s.logger.Debug("single page rejected", "url", target, "status", resp.StatusCode)
		return nil, false
	}
	if resp.EffectiveURL == "" {
		resp.EffectiveURL = target
	}
	return resp, true
}

func (s *build) language(p *page) string {
	mode := s.req.Language
	if mode == fulltext.LanguageOff {
		return ""
	}
	lang := p.declared
	if lang == "" {
		lang = s.feed.Language
	}
	detect := mode == fulltext.LanguageDetectAlways ||
		(mode == fulltext.LanguageDetectMissing && lang == "")
	if detect && s.Detector != nil && p.sample != "" {
		if detected, ok := s.Detector.Detect(p.sample); ok {
			lang = detected
		}
	}
	if len(lang) > fulltext.MaxLanguageTagLen {
		return ""
	}
	return lang
}

func (s *build) substitute(msg, link, effectiveURL string) string {
	if msg == "" {
		return ""
	}
	msg = strings.ReplaceAll(msg, "{url}", html.EscapeString(link))
	return strings.ReplaceAll(msg, "{effective-url}", html.EscapeString(effectiveURL))
}

func dummyFeed(u string) *fulltext.Feed {
	return &fulltext.Feed{
		Description: "Content extracted from " + u,
		Link:        u,
		Entries:     []*fulltext.Entry{{Permalink: u}},
	}
}

// permalink returns the entry link with encoded colons restored; some
// sites reject the encoded form.
func permalink(e *fulltext.Entry) string {
	return strings.ReplaceAll(strings.TrimSpace(e.Permalink), "%3A", ":")
}

// cleanMarkup removes a stray token that breaks some parsers.
func cleanMarkup(markup string) string {
	return strings.ReplaceAll(markup, "</[>", "")
}

func linkBody(target, mediaType, name string) string {
	href := html.EscapeString(target)
	if major, _, _ := strings.Cut(mediaType, "/"); major == "image" {
		return `<a href="` + href + `"><img src="` + href + `" alt="` + html.EscapeString(name) + `" /></a>`
	}
	return `<a href="` + href + `">Download ` + html.EscapeString(name) + `</a>`
}

// wholePage returns the body element of markup, or nil.
func wholePage(markup string) *nethtml.Node {
	doc, err := xpath.Parse(markup)
	if err != nil {
		return nil
	}
	if nodes := doc.Query("//body", nil); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// StripTracking removes utm_* query parameters from rawURL, keeping the
// order of the rest.
func StripTracking(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return rawURL
	}
	parts := strings.Split(u.RawQuery, "&")
	kept := parts[:0]
	for _, part := range parts {
		if !strings.HasPrefix(part, "utm_") {
			kept = append(kept, part)
		}
	}
	u.RawQuery = strings.Join(kept, "&")
	return u.String()
}

// LanguageSample returns the leading text handed to language detection,
// cut at a rune boundary.
func LanguageSample(s string) string {
	n := languageSampleLen
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
