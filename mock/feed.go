package mock

import (
	"context"
	"io"

	"github.com/fwojciec/fulltext"
)

var _ fulltext.FeedParser = (*FeedParser)(nil)

// FeedParser is a mock implementation of fulltext.FeedParser.
type FeedParser struct {
	ParseFn func(ctx context.Context, body []byte) (*fulltext.Feed, error)
}

func (p *FeedParser) Parse(ctx context.Context, body []byte) (*fulltext.Feed, error) {
	return p.ParseFn(ctx, body)
}

var _ fulltext.FeedWriter = (*FeedWriter)(nil)

// FeedWriter is a mock implementation of fulltext.FeedWriter.
type FeedWriter struct {
	ContentTypeFn func() string
	WriteFn       func(w io.Writer, feed *fulltext.OutputFeed) error
}

func (f *FeedWriter) ContentType() string {
	return f.ContentTypeFn()
}

func (f *FeedWriter) Write(w io.Writer, feed *fulltext.OutputFeed) error {
	return f.WriteFn(w, feed)
}

var _ fulltext.LanguageDetector = (*LanguageDetector)(nil)

// LanguageDetector is a mock implementation of fulltext.LanguageDetector.
type LanguageDetector struct {
	DetectFn func(text string) (string, bool)
}

func (d *LanguageDetector) Detect(text string) (string, bool) {
	return d.DetectFn(text)
}

var _ fulltext.FeedBuilder = (*FeedBuilder)(nil)

// FeedBuilder is a mock implementation of fulltext.FeedBuilder.
type FeedBuilder struct {
	BuildFn func(ctx context.Context, req fulltext.FeedRequest) (*fulltext.OutputFeed, error)
}

func (b *FeedBuilder) Build(ctx context.Context, req fulltext.FeedRequest) (*fulltext.OutputFeed, error) {
	return b.BuildFn(ctx, req)
}
