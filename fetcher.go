package fulltext

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"
)

// FetchResponse is the outcome of one HTTP retrieval. It is immutable once
// returned.
type FetchResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// EffectiveURL is the URL after redirects. Rule resolution and link
	// rewriting must use it instead of the requested URL.
	EffectiveURL string

	Elapsed time.Duration

	// Cached reports whether the response came from the response cache.
	Cached bool

	// HeaderOnly reports that the body was not downloaded because the
	// content type is on the header-only list.
	HeaderOnly bool
}

// MediaType returns the lower-cased media type from the Content-Type header.
func (r *FetchResponse) MediaType() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt, _, _ = strings.Cut(ct, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Acceptable reports whether the response carries a page worth extracting.
// Some sites serve the article with a 4xx status, so only redirects and
// the 400 boundary itself are rejected.
func (r *FetchResponse) Acceptable() bool {
	return r.StatusCode < 300 || r.StatusCode > 400
}

// Fetcher retrieves pages over HTTP.
type Fetcher interface {
	// Prefetch starts retrieving urls in the background and returns
	// immediately. A later Get for one of the urls waits for the prefetch
	// instead of issuing a second request.
	Prefetch(ctx context.Context, urls []string)

	// Get retrieves url. Redirects are followed only when followRedirects
	// is set. Network failures, timeouts and redirect loops return EFETCH.
	Get(ctx context.Context, url string, followRedirects bool) (*FetchResponse, error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// URLPolicy filters URLs by case-insensitive substring. An empty Allowed
// list allows everything not Blocked.
type URLPolicy struct {
	Allowed []string `yaml:"allowed_urls"`
	Blocked []string `yaml:"blocked_urls"`
}

// Check returns an EBLOCKED error if the policy rejects rawURL.
func (p URLPolicy) Check(rawURL string) error {
	lower := strings.ToLower(rawURL)
	if len(p.Allowed) > 0 {
		allowed := false
		for _, s := range p.Allowed {
			if s != "" && strings.Contains(lower, strings.ToLower(s)) {
				allowed = true
				break
			}
		}
		if !allowed {
			return Errorf(EBLOCKED, "url %q is not allowed", rawURL)
		}
	}
	for _, s := range p.Blocked {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return Errorf(EBLOCKED, "url %q is blocked", rawURL)
		}
	}
	return nil
}

// ContentTypeAction says what to do with items whose content type is not
// HTML.
type ContentTypeAction string

const (
	// ActionLink replaces the body with a link to the document.
	ActionLink ContentTypeAction = "link"

	// ActionExclude drops the item.
	ActionExclude ContentTypeAction = "exclude"
)

// ContentTypeRule maps a media type ("application/pdf") or a major type
// ("image") to an action.
type ContentTypeRule struct {
	MediaType string            `yaml:"type"`
	Action    ContentTypeAction `yaml:"action"`
	Name      string            `yaml:"name"`
}

// ContentTypeRules is an ordered list of content type exceptions.
type ContentTypeRules []ContentTypeRule

// DefaultContentTypeRules returns link actions for binary media.
func DefaultContentTypeRules() ContentTypeRules {
	return ContentTypeRules{
		{MediaType: "application/pdf", Action: ActionLink, Name: "PDF"},
		{MediaType: "image", Action: ActionLink, Name: "Image"},
		{MediaType: "audio", Action: ActionLink, Name: "Audio"},
		{MediaType: "video", Action: ActionLink, Name: "Video"},
	}
}

// Lookup finds the rule for a media type, matching the full type before
// the major type.
func (rules ContentTypeRules) Lookup(mediaType string) (ContentTypeRule, bool) {
	mediaType = strings.ToLower(mediaType)
	major, _, _ := strings.Cut(mediaType, "/")
	for _, candidate := range []string{mediaType, major} {
		for _, r := range rules {
			if strings.EqualFold(r.MediaType, candidate) {
				return r, true
			}
		}
	}
	return ContentTypeRule{}, false
}

// MediaTypes returns the configured types, for header-only fetching.
func (rules ContentTypeRules) MediaTypes() []string {
	types := make([]string, 0, len(rules))
	for _, r := range rules {
		types = append(types, strings.ToLower(r.MediaType))
	}
	return types
}

// Rewrite is a literal URL substitution applied before a request when the
// request host contains Host.
type Rewrite struct {
	Host    string `yaml:"host"`
	Find    string `yaml:"find"`
	Replace string `yaml:"replace"`
}

type refererKey struct{}

// WithReferer returns a context that makes fetches send referer.
func WithReferer(ctx context.Context, referer string) context.Context {
	return context.WithValue(ctx, refererKey{}, referer)
}

// RefererFrom returns the referer set by WithReferer.
func RefererFrom(ctx context.Context) string {
	ref, _ := ctx.Value(refererKey{}).(string)
	return ref
}
