package fulltext

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"
)

// Enclosure is a media attachment of a feed entry.
type Enclosure struct {
	URL    string
	Type   string
	Length int64
}

// Entry is one item of a source feed.
type Entry struct {
	Permalink   string
	Title       string
	Description string
	Date        time.Time
	Authors     []string
	Enclosures  []Enclosure
}

// Feed is a parsed source feed. Entries are in document order, which is
// also processing order.
type Feed struct {
	Title       string
	Description string
	Link        string
	Language    string
	ImageURL    string
	Entries     []*Entry
}

// FeedParser parses source feeds.
type FeedParser interface {
	// Parse parses an RSS, Atom or JSON feed. Returns EPARSE when body is
	// not a feed.
	Parse(ctx context.Context, body []byte) (*Feed, error)
}

// Article is a processed entry ready for serialization.
type Article struct {
	Title       string
	Description string
	GUID        string
	Permalink   string
	Date        time.Time
	Authors     []string
	Language    string

	// Format is the media type when a content type exception applied.
	Format string

	// EffectiveURL is the final page URL with tracking parameters removed.
	EffectiveURL string

	Enclosures []Enclosure
}

// OutputFeed is the full-text feed handed to a FeedWriter.
type OutputFeed struct {
	Title       string
	Description string
	Link        string
	Language    string
	ImageURL    string
	Generator   string
	Articles    []*Article
}

// FeedWriter serializes an output feed.
type FeedWriter interface {
	// ContentType is the media type of the serialized form.
	ContentType() string

	// Write serializes feed to w.
	Write(w io.Writer, feed *OutputFeed) error
}

// FeedRequest describes one full-text feed to build.
type FeedRequest struct {
	// URL is the source feed, or a page when HTMLOnly is set or the
	// response is not a feed.
	URL string

	// Max caps the number of items. Zero selects the configured default.
	Max int

	Links LinkMode

	// ExcludeOnFailure drops items whose extraction failed instead of
	// emitting the error message.
	ExcludeOnFailure bool

	// HTMLOnly skips feed parsing and treats URL as a single article.
	HTMLOnly bool

	Language LanguageMode

	// Pattern is a CSS selector applied to extracted content. A leading
	// "auto" keyword narrows the automatically extracted body; without it
	// the selector is applied to the whole page and automatic extraction
	// is skipped.
	Pattern string
}

// FeedBuilder turns a source feed into a full-text feed.
type FeedBuilder interface {
	Build(ctx context.Context, req FeedRequest) (*OutputFeed, error)
}

// NormalizeFeedURL cleans up a user-supplied source URL: the feed: scheme
// becomes http:, a missing scheme defaults to http:, and anything that is
// not an absolute http(s) URL is EINVALID.
func NormalizeFeedURL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", Errorf(EINVALID, "No URL supplied")
	}
	lower := strings.ToLower(u)
	switch {
	case strings.HasPrefix(lower, "feed://"):
		u = "http://" + u[len("feed://"):]
	case !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://"):
		u = "http://" + u
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "", Errorf(EINVALID, "Invalid URL supplied")
	}
	return u, nil
}
