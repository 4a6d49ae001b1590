// Package feeds serializes full-text feeds as Atom and JSON Feed with
// github.com/gorilla/feeds.
package feeds

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/fulltext"
	"github.com/gorilla/feeds"
)

// Format selects the serialization.
type Format string

const (
	FormatAtom Format = "atom"
	FormatJSON Format = "json"
)

// Ensure Writer implements fulltext.FeedWriter at compile time.
var _ fulltext.FeedWriter = (*Writer)(nil)

// Writer writes Atom or JSON Feed documents.
type Writer struct {
	format Format
	now    func() time.Time
}

// NewAtomWriter creates a Writer producing Atom.
func NewAtomWriter() *Writer {
	return &Writer{format: FormatAtom, now: time.Now}
}

// NewJSONWriter creates a Writer producing JSON Feed.
func NewJSONWriter() *Writer {
	return &Writer{format: FormatJSON, now: time.Now}
}

// ContentType returns the media type of the format.
func (w *Writer) ContentType() string {
	if w.format == FormatJSON {
		return "application/feed+json; charset=utf-8"
	}
	return "application/atom+xml; charset=utf-8"
}

// Write serializes feed.
func (w *Writer) Write(out io.Writer, feed *fulltext.OutputFeed) error {
	f := &feeds.Feed{
		Title:       feed.Title,
		Link:        &feeds.Link{Href: feed.Link},
		Description: feed.Description,
		Updated:     w.updated(feed),
	}
	if feed.ImageURL != "" {
		f.Image = &feeds.Image{Url: feed.ImageURL, Title: feed.Title, Link: feed.Link}
	}

	for _, a := range feed.Articles {
		item := &feeds.Item{
			Id:      a.GUID,
			Title:   a.Title,
			Link:    &feeds.Link{Href: a.Permalink},
			Content: a.Description,
			Created: a.Date,
		}
		if item.Id == "" {
			item.Id = a.Permalink
		}
		if len(a.Authors) > 0 {
			item.Author = &feeds.Author{Name: strings.Join(a.Authors, ", ")}
		}
		if a.EffectiveURL != "" && a.EffectiveURL != a.Permalink {
			item.Source = &feeds.Link{Href: a.EffectiveURL}
		}
		if len(a.Enclosures) > 0 {
			enc := a.Enclosures[0]
			item.Enclosure = &feeds.Enclosure{Url: enc.URL, Type: enc.Type, Length: strconv.FormatInt(enc.Length, 10)}
		}
		f.Items = append(f.Items, item)
	}

	if w.format == FormatJSON {
		return f.WriteJSON(out)
	}
	return f.WriteAtom(out)
}

// updated is the newest article date, or now when no article is dated.
func (w *Writer) updated(feed *fulltext.OutputFeed) time.Time {
	var latest time.Time
	for _, a := range feed.Articles {
		if a.Date.After(latest) {
			latest = a.Date
		}
	}
	if latest.IsZero() {
		return w.now()
	}
	return latest
}
