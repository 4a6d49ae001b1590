// Package etree serializes full-text feeds as RSS 2.0 with
// github.com/beevik/etree.
package etree

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/fwojciec/fulltext"
)

// Namespaces used by the RSS output.
const (
	NamespaceDC    = "http://purl.org/dc/elements/1.1/"
	NamespaceMedia = "http://search.yahoo.com/mrss/"
)

// Ensure Writer implements fulltext.FeedWriter at compile time.
var _ fulltext.FeedWriter = (*Writer)(nil)

// Writer writes RSS 2.0 with Dublin Core and Media RSS extensions.
type Writer struct{}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// ContentType returns the RSS media type.
func (w *Writer) ContentType() string {
	return "application/rss+xml; charset=utf-8"
}

// Write serializes feed as RSS.
func (w *Writer) Write(out io.Writer, feed *fulltext.OutputFeed) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	rss := doc.CreateElement("rss")
	rss.CreateAttr("version", "2.0")
	rss.CreateAttr("xmlns:dc", NamespaceDC)
	rss.CreateAttr("xmlns:media", NamespaceMedia)

	channel := rss.CreateElement("channel")
	channel.CreateElement("title").SetText(feed.Title)
	channel.CreateElement("link").SetText(feed.Link)
	channel.CreateElement("description").SetText(feed.Description)
	if feed.Language != "" {
		channel.CreateElement("language").SetText(feed.Language)
	}
	if feed.Generator != "" {
		channel.CreateElement("generator").SetText(feed.Generator)
	}
	if feed.ImageURL != "" {
		image := channel.CreateElement("image")
		image.CreateElement("url").SetText(feed.ImageURL)
		image.CreateElement("title").SetText(feed.Title)
		image.CreateElement("link").SetText(feed.Link)
	}

	for _, a := range feed.Articles {
		writeItem(channel.CreateElement("item"), a)
	}

	doc.Indent(2)
	_, err := doc.WriteTo(out)
	return err
}

func writeItem(item *etree.Element, a *fulltext.Article) {
	item.CreateElement("title").SetText(a.Title)
	if a.Permalink != "" {
		item.CreateElement("link").SetText(a.Permalink)
	}
	if a.GUID != "" {
		guid := item.CreateElement("guid")
		guid.CreateAttr("isPermaLink", strconv.FormatBool(a.GUID == a.Permalink))
		guid.SetText(a.GUID)
	}
	if !a.Date.IsZero() {
		item.CreateElement("pubDate").SetText(a.Date.UTC().Format(time.RFC1123Z))
	}
	item.CreateElement("description").SetText(a.Description)

	for _, author := range a.Authors {
		item.CreateElement("dc:creator").SetText(author)
	}
	if a.Language != "" {
		item.CreateElement("dc:language").SetText(a.Language)
	}
	if a.Format != "" {
		item.CreateElement("dc:format").SetText(a.Format)
	}
	if a.EffectiveURL != "" {
		item.CreateElement("dc:identifier").SetText(a.EffectiveURL)
	}

	for i, enc := range a.Enclosures {
		if i == 0 {
			e := item.CreateElement("enclosure")
			e.CreateAttr("url", enc.URL)
			e.CreateAttr("length", strconv.FormatInt(enc.Length, 10))
			e.CreateAttr("type", enc.Type)
		}
		m := item.CreateElement("media:content")
		m.CreateAttr("url", enc.URL)
		if enc.Type != "" {
			m.CreateAttr("type", enc.Type)
			m.CreateAttr("medium", medium(enc.Type))
		}
		if enc.Length > 0 {
			m.CreateAttr("fileSize", strconv.FormatInt(enc.Length, 10))
		}
	}
}

// medium maps a media type to a Media RSS medium.
func medium(mediaType string) string {
	major, _, _ := strings.Cut(strings.ToLower(mediaType), "/")
	switch major {
	case "image", "audio", "video":
		return major
	}
	return "document"
}
