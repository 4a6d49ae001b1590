// Package gofeed parses source feeds with github.com/mmcdole/gofeed.
package gofeed

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/fwojciec/fulltext"
	"github.com/mmcdole/gofeed"
)

// Ensure Parser implements fulltext.FeedParser at compile time.
var _ fulltext.FeedParser = (*Parser)(nil)

// Parser reads RSS, Atom and JSON feeds.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses body. Items keep their document order.
func (p *Parser) Parse(ctx context.Context, body []byte) (*fulltext.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fulltext.Errorf(fulltext.EPARSE, "parse feed: %v", err)
	}

	feed := &fulltext.Feed{
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		Link:        parsed.Link,
		Language:    parsed.Language,
		Entries:     make([]*fulltext.Entry, 0, len(parsed.Items)),
	}
	if parsed.Image != nil {
		feed.ImageURL = parsed.Image.URL
	}

	for _, item := range parsed.Items {
		feed.Entries = append(feed.Entries, entry(item))
	}
	return feed, nil
}

func entry(item *gofeed.Item) *fulltext.Entry {
	e := &fulltext.Entry{
		Permalink:   permalink(item),
		Title:       strings.TrimSpace(item.Title),
		Description: item.Description,
	}
	if e.Description == "" {
		e.Description = item.Content
	}

	switch {
	case item.PublishedParsed != nil:
		e.Date = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		e.Date = *item.UpdatedParsed
	}

	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			e.Authors = append(e.Authors, strings.TrimSpace(a.Name))
		}
	}
	if len(e.Authors) == 0 && item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		e.Authors = []string{strings.TrimSpace(item.Author.Name)}
	}

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		length, _ := strconv.ParseInt(strings.TrimSpace(enc.Length), 10, 64)
		e.Enclosures = append(e.Enclosures, fulltext.Enclosure{URL: enc.URL, Type: enc.Type, Length: length})
	}
	return e
}

// permalink prefers the item link, falling back to a GUID that looks like
// a URL.
func permalink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	if guid := strings.TrimSpace(item.GUID); strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return guid
	}
	return ""
}
