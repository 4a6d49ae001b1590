package crawl_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/crawl"
	"github.com/fwojciec/fulltext/goquery"
	"github.com/fwojciec/fulltext/mock"
	"github.com/fwojciec/fulltext/xpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sourceURL = "https://example.com/feed.xml"

// site serves canned responses and records every request.
type site struct {
	mu        sync.Mutex
	pages     map[string]*fulltext.FetchResponse
	gets      []string
	referers  map[string]string
	prefetch  [][]string
	getsAtPre int
}

func newSite() *site {
	return &site{
		pages:    make(map[string]*fulltext.FetchResponse),
		referers: make(map[string]string),
	}
}

func (s *site) html(u, body string) {
	s.page(u, http.StatusOK, "text/html; charset=utf-8", body)
}

func (s *site) page(u string, status int, contentType, body string) {
	s.pages[u] = &fulltext.FetchResponse{
		StatusCode:   status,
		Header:       http.Header{"Content-Type": []string{contentType}},
		Body:         []byte(body),
		EffectiveURL: u,
	}
}

func (s *site) count(u string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.gets {
		if g == u {
			n++
		}
	}
	return n
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		PrefetchFn: func(ctx context.Context, urls []string) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.prefetch = append(s.prefetch, urls)
			s.getsAtPre = len(s.gets)
		},
		GetFn: func(ctx context.Context, u string, follow bool) (*fulltext.FetchResponse, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.gets = append(s.gets, u)
			if ref := fulltext.RefererFrom(ctx); ref != "" {
				s.referers[u] = ref
			}
			resp, ok := s.pages[u]
			if !ok {
				return nil, fulltext.Errorf(fulltext.EFETCH, "%s: connection refused", u)
			}
			return resp, nil
		},
	}
}

func feedOf(entries ...*fulltext.Entry) *mock.FeedParser {
	return &mock.FeedParser{
		ParseFn: func(ctx context.Context, body []byte) (*fulltext.Feed, error) {
			return &fulltext.Feed{
				Title:    "Example News",
				Link:     "https://example.com/",
				Language: "en",
				Entries:  entries,
			}, nil
		},
	}
}

func notAFeed() *mock.FeedParser {
	return &mock.FeedParser{
		ParseFn: func(ctx context.Context, body []byte) (*fulltext.Feed, error) {
			return nil, fulltext.Errorf(fulltext.EPARSE, "not a feed")
		},
	}
}

// articles extracts the first <article> element and the first <h1> as
// title, standing in for the real cascade.
func articles(t *testing.T) *mock.Extractor {
	return &mock.Extractor{
		ExtractFn: func(rawHTML, pageURL string) (*fulltext.ExtractResult, error) {
			doc, err := xpath.Parse(rawHTML)
			require.NoError(t, err)
			result := &fulltext.ExtractResult{}
			if h := doc.Query("//h1", nil); len(h) > 0 {
				result.Title = xpath.Text(h[0])
			}
			if lang := doc.Query("//html/@lang", nil); len(lang) > 0 {
				result.Language = xpath.Text(lang[0])
			}
			if body := doc.Query("//article", nil); len(body) > 0 {
				result.Body = body[0]
				result.Success = true
			}
			return result, nil
		},
	}
}

func newBuilder(t *testing.T, s *site, feeds fulltext.FeedParser) *crawl.Builder {
	return &crawl.Builder{
		Fetcher:     s.fetcher(),
		Feeds:       feeds,
		Extractor:   articles(t),
		Formatter:   goquery.NewFormatter(),
		Options:     crawl.DefaultOptions(),
		RetryDelays: []time.Duration{0},
	}
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	t.Run("replaces descriptions with extracted content", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<h1>A</h1><article><p>Full story A.</p></article>`)
		s.html("https://example.com/b", `<h1>B</h1><article><p>Full story B.</p></article>`)
		published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		b := newBuilder(t, s, feedOf(
			&fulltext.Entry{Permalink: "https://example.com/a", Title: "Entry A", Description: "teaser", Date: published, Authors: []string{"Ann"}},
			&fulltext.Entry{Permalink: "https://example.com/b", Title: "Entry B", Description: "teaser"},
		))

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL, Language: fulltext.LanguageDeclared})
		require.NoError(t, err)

		assert.Equal(t, "Example News", out.Title)
		assert.Equal(t, crawl.Generator, out.Generator)
		require.Len(t, out.Articles, 2)
		a := out.Articles[0]
		assert.Equal(t, "Entry A", a.Title)
		assert.Contains(t, a.Description, "Full story A.")
		assert.NotContains(t, a.Description, "teaser")
		assert.Equal(t, "https://example.com/a", a.GUID)
		assert.Equal(t, "https://example.com/a", a.Permalink)
		assert.Equal(t, published, a.Date)
		assert.Equal(t, []string{"Ann"}, a.Authors)
		assert.Equal(t, "en", a.Language)
		assert.Contains(t, out.Articles[1].Description, "Full story B.")
	})

	t.Run("prefetches every permalink before processing items", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		b := newBuilder(t, s, feedOf(
			&fulltext.Entry{Permalink: "https://example.com/a"},
			&fulltext.Entry{Permalink: "https://example.com/b"},
		))

		_, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)

		require.Len(t, s.prefetch, 1)
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, s.prefetch[0])
		assert.Equal(t, 1, s.getsAtPre, "only the source feed is fetched before the prefetch")
		assert.Equal(t, []string{sourceURL, "https://example.com/a", "https://example.com/b"}, s.gets)
	})

	t.Run("caps items", func(t *testing.T) {
		t.Parallel()

		var entries []*fulltext.Entry
		for _, p := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
			entries = append(entries, &fulltext.Entry{Permalink: "https://example.com/" + p})
		}
		tests := []struct {
			name string
			max  int
			want int
		}{
			{"default when unset", 0, crawl.DefaultEntries},
			{"requested below the cap", 3, 3},
			{"requested above the cap", 50, crawl.MaxEntries},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				s := newSite()
				s.html(sourceURL, "<rss/>")
				b := newBuilder(t, s, feedOf(entries...))

				out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL, Max: tt.max})
				require.NoError(t, err)
				assert.Len(t, out.Articles, tt.want)
			})
		}
	})

	t.Run("treats a page as a single-item feed", func(t *testing.T) {
		t.Parallel()

		page := "https://example.com/story"
		s := newSite()
		s.html(page, `<h1>Extracted Title</h1><article><p>Body.</p></article>`)
		b := newBuilder(t, s, notAFeed())

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: page, Max: 5})
		require.NoError(t, err)

		assert.Equal(t, "Extracted Title", out.Title)
		assert.Equal(t, "Content extracted from "+page, out.Description)
		assert.Equal(t, page, out.Link)
		require.Len(t, out.Articles, 1)
		assert.Equal(t, "Extracted Title", out.Articles[0].Title)
		assert.Equal(t, page, out.Articles[0].GUID)
		assert.Contains(t, out.Articles[0].Description, "Body.")
	})

	t.Run("skips feed parsing in HTML-only mode", func(t *testing.T) {
		t.Parallel()

		page := "https://example.com/story"
		s := newSite()
		s.html(page, `<h1>T</h1><article><p>Body.</p></article>`)
		b := newBuilder(t, s, &mock.FeedParser{
			ParseFn: func(ctx context.Context, body []byte) (*fulltext.Feed, error) {
				t.Fatal("feed parser must not be called")
				return nil, nil
			},
		})

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: page, HTMLOnly: true})
		require.NoError(t, err)
		require.Len(t, out.Articles, 1)
		assert.Equal(t, 1, s.count(page))
	})

	t.Run("fetches the source with the source fetcher", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html("https://example.com/a", `<article><p>A.</p></article>`)
		machine := newSite()
		machine.html(sourceURL, "<rss/>")
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: "https://example.com/a"}))
		b.Source = machine.fetcher()

		_, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)
		assert.Equal(t, 1, machine.count(sourceURL))
		assert.Equal(t, 0, s.count(sourceURL))
	})

	t.Run("retries the source feed", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html("https://example.com/a", `<article><p>A.</p></article>`)
		attempts := 0
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: "https://example.com/a"}))
		b.Source = &mock.Fetcher{
			GetFn: func(ctx context.Context, u string, follow bool) (*fulltext.FetchResponse, error) {
				attempts++
				if attempts == 1 {
					return &fulltext.FetchResponse{StatusCode: http.StatusServiceUnavailable}, nil
				}
				return &fulltext.FetchResponse{StatusCode: http.StatusOK, Body: []byte("<rss/>")}, nil
			},
		}

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.Len(t, out.Articles, 1)
	})

	t.Run("fails when the source cannot be fetched", func(t *testing.T) {
		t.Parallel()

		b := newBuilder(t, newSite(), feedOf())

		_, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		assert.Equal(t, fulltext.EFETCH, fulltext.ErrorCode(err))
	})

	t.Run("reports an empty feed", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		b := newBuilder(t, s, feedOf())

		_, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		assert.Equal(t, fulltext.ENOTFOUND, fulltext.ErrorCode(err))
	})

	t.Run("refuses a blocked source", func(t *testing.T) {
		t.Parallel()

		b := newBuilder(t, newSite(), feedOf())
		b.Options.Policy = fulltext.URLPolicy{Blocked: []string{"example.com"}}

		_, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		assert.Equal(t, fulltext.EBLOCKED, fulltext.ErrorCode(err))
	})

	t.Run("skips blocked permalinks without fetching them", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<article><p>A.</p></article>`)
		b := newBuilder(t, s, feedOf(
			&fulltext.Entry{Permalink: "https://ads.example.net/x"},
			&fulltext.Entry{Permalink: "https://example.com/a"},
		))
		b.Options.Policy = fulltext.URLPolicy{Blocked: []string{"ADS.example.net"}}

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)

		require.Len(t, out.Articles, 1)
		assert.Equal(t, "https://example.com/a", out.Articles[0].Permalink)
		assert.Equal(t, []string{"https://example.com/a"}, s.prefetch[0])
		assert.Equal(t, 0, s.count("https://ads.example.net/x"))
	})

	t.Run("skips items that redirect to a blocked URL", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.pages["https://example.com/short"] = &fulltext.FetchResponse{
			StatusCode:   http.StatusOK,
			Body:         []byte(`<article><p>A.</p></article>`),
			EffectiveURL: "https://blocked.example.org/a",
		}
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: "https://example.com/short"}))
		b.Options.Policy = fulltext.URLPolicy{Blocked: []string{"blocked.example.org"}}

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)
		assert.Empty(t, out.Articles)
	})

	t.Run("emits the error message and original description on failure", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<div>No article here.</div>`)
		b := newBuilder(t, s, feedOf(
			&fulltext.Entry{Permalink: "https://example.com/a", Description: "<p>Original teaser</p>"},
			&fulltext.Entry{Permalink: "https://example.com/gone", Description: "<p>Other teaser</p>"},
		))

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)

		require.Len(t, out.Articles, 2)
		assert.Equal(t, crawl.ErrorMessage+"<p>Original teaser</p>", out.Articles[0].Description)
		assert.Equal(t, crawl.ErrorMessage+"<p>Other teaser</p>", out.Articles[1].Description)
	})

	t.Run("drops failed items when asked to", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<div>No article here.</div>`)
		s.html("https://example.com/b", `<article><p>B.</p></article>`)
		b := newBuilder(t, s, feedOf(
			&fulltext.Entry{Permalink: "https://example.com/a"},
			&fulltext.Entry{Permalink: "https://example.com/b"},
		))
		var events []crawl.ProgressType
		b.Progress = func(e crawl.ProgressEvent) {
			events = append(events, e.Type)
		}

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL, ExcludeOnFailure: true})
		require.NoError(t, err)

		require.Len(t, out.Articles, 1)
		assert.Equal(t, "https://example.com/b", out.Articles[0].Permalink)
		assert.Equal(t, []crawl.ProgressType{
			crawl.ProgressStarted,
			crawl.ProgressSkipped,
			crawl.ProgressCompleted,
			crawl.ProgressFinished,
		}, events)
	})

	t.Run("accepts error statuses above 400 but not redirects", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.page("https://example.com/paywall", http.StatusForbidden, "text/html", `<article><p>Served anyway.</p></article>`)
		s.page("https://example.com/moved", http.StatusFound, "text/html", `<article><p>Moved.</p></article>`)
		b := newBuilder(t, s, feedOf(
			&fulltext.Entry{Permalink: "https://example.com/paywall"},
			&fulltext.Entry{Permalink: "https://example.com/moved"},
		))

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)

		require.Len(t, out.Articles, 2)
		assert.Contains(t, out.Articles[0].Description, "Served anyway.")
		assert.True(t, strings.HasPrefix(out.Articles[1].Description, crawl.ErrorMessage))
	})

	t.Run("links to documents of excepted content types", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.page("https://example.com/report.pdf", http.StatusOK, "application/pdf", "")
		s.page("https://example.com/photo.jpg", http.StatusOK, "image/jpeg", "")
		s.page("https://example.com/clip.mp4", http.StatusOK, "video/mp4", "")
		b := newBuilder(t, s, feedOf(
			&fulltext.Entry{Permalink: "https://example.com/report.pdf"},
			&fulltext.Entry{Permalink: "https://example.com/photo.jpg"},
			&fulltext.Entry{Permalink: "https://example.com/clip.mp4"},
		))
		b.Options.ContentTypes = append(b.Options.ContentTypes[:0:0], b.Options.ContentTypes...)
		b.Options.ContentTypes[3].Action = fulltext.ActionExclude

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)

		require.Len(t, out.Articles, 2)
		assert.Equal(t, `<a href="https://example.com/report.pdf">Download PDF</a>`, out.Articles[0].Description)
		assert.Equal(t, "application/pdf", out.Articles[0].Format)
		assert.Equal(t, `<a href="https://example.com/photo.jpg"><img src="https://example.com/photo.jpg" alt="Image" /></a>`, out.Articles[1].Description)
		assert.Equal(t, "image/jpeg", out.Articles[1].Format)
	})

	t.Run("follows the single-page link exactly once", func(t *testing.T) {
		t.Parallel()

		page := "https://example.com/a"
		single := "https://example.com/a?page=all"
		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html(page, `<article><p>Page one.</p></article>`)
		s.html(single, `<article><p>Page one. Page two.</p></article>`)
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: page, Description: "desc"}))
		extractor := articles(t)
		var seen []string
		extractor.SinglePageURLFn = func(rawHTML, itemDescription, pageURL string) (string, bool) {
			assert.Equal(t, "desc", itemDescription)
			assert.Equal(t, page, pageURL)
			return single, true
		}
		inner := extractor.ExtractFn
		extractor.ExtractFn = func(rawHTML, pageURL string) (*fulltext.ExtractResult, error) {
			seen = append(seen, pageURL)
			return inner(rawHTML, pageURL)
		}
		b.Extractor = extractor

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)

		assert.Equal(t, 1, s.count(single))
		assert.Equal(t, page, s.referers[single])
		assert.Equal(t, []string{single}, seen)
		require.Len(t, out.Articles, 1)
		assert.Contains(t, out.Articles[0].Description, "Page two.")
		assert.Equal(t, single, out.Articles[0].EffectiveURL)
	})

	t.Run("falls back to the original page when the single page fails", func(t *testing.T) {
		t.Parallel()

		page := "https://example.com/a"
		single := "https://example.com/a?page=all"
		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html(page, `<article><p>Page one.</p></article>`)
		s.page(single, http.StatusNotFound, "text/html", `<article><p>Not found.</p></article>`)
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: page}))
		extractor := articles(t)
		extractor.SinglePageURLFn = func(rawHTML, itemDescription, pageURL string) (string, bool) {
			return single, true
		}
		b.Extractor = extractor

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)

		assert.Equal(t, 1, s.count(single), "no retry")
		require.Len(t, out.Articles, 1)
		assert.Contains(t, out.Articles[0].Description, "Page one.")
		assert.Equal(t, page, out.Articles[0].EffectiveURL)
	})

	t.Run("removes the stray token before extraction", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<article><p>Clean</[> text.</p></article>`)
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: "https://example.com/a"}))

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)
		assert.Contains(t, out.Articles[0].Description, "Clean text.")
	})

	t.Run("wraps content in messages with substitutions", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.pages["https://example.com/a?x=1&y=2"] = &fulltext.FetchResponse{
			StatusCode:   http.StatusOK,
			Body:         []byte(`<article><p>Body.</p></article>`),
			EffectiveURL: "https://example.com/final",
		}
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: "https://example.com/a?x=1&y=2"}))
		b.Options.MessageToPrepend = `<p>From {url}</p>`
		b.Options.MessageToAppend = `<p>Via {effective-url}</p>`

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)

		desc := out.Articles[0].Description
		assert.True(t, strings.HasPrefix(desc, `<p>From https://example.com/a?x=1&amp;y=2</p>`), desc)
		assert.True(t, strings.HasSuffix(desc, `<p>Via https://example.com/final</p>`), desc)
	})

	t.Run("strips tracking parameters from the effective URL", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.pages["https://example.com/a"] = &fulltext.FetchResponse{
			StatusCode:   http.StatusOK,
			Body:         []byte(`<article><p>Body.</p></article>`),
			EffectiveURL: "https://example.com/a?utm_source=feed&id=7",
		}
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: "https://example.com/a"}))

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a?id=7", out.Articles[0].EffectiveURL)
	})

	t.Run("applies link modes and absolute URLs", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/news/a", `<article><p>See <a href="/news/b">more</a>.</p></article>`)
		entry := &fulltext.Entry{Permalink: "https://example.com/news/a"}

		b := newBuilder(t, s, feedOf(entry))
		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)
		assert.Contains(t, out.Articles[0].Description, `href="https://example.com/news/b"`)

		out, err = b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL, Links: fulltext.LinksRemove})
		require.NoError(t, err)
		assert.NotContains(t, out.Articles[0].Description, "<a")
		assert.Contains(t, out.Articles[0].Description, "See more.")
	})

	t.Run("narrows automatic extraction with a pattern", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<article><p>Chrome.</p><div class="story"><p>Story.</p></div></article>`)
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: "https://example.com/a"}))

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL, Pattern: "auto div.story"})
		require.NoError(t, err)
		assert.Contains(t, out.Articles[0].Description, "Story.")
		assert.NotContains(t, out.Articles[0].Description, "Chrome.")
	})

	t.Run("applies a bare pattern to the whole page", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<div id="main"><p>Story.</p><script>track()</script></div><div id="footer">Footer.</div>`)
		s.html("https://example.com/b", `<p>Nothing matches.</p>`)
		b := newBuilder(t, s, feedOf(
			&fulltext.Entry{Permalink: "https://example.com/a"},
			&fulltext.Entry{Permalink: "https://example.com/b", Description: "teaser"},
		))
		b.Extractor = &mock.Extractor{
			ExtractFn: func(rawHTML, pageURL string) (*fulltext.ExtractResult, error) {
				t.Fatal("automatic extraction must be skipped")
				return nil, nil
			},
		}
		b.Cleaner = goquery.NewScorer()

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL, Pattern: "#main"})
		require.NoError(t, err)

		require.Len(t, out.Articles, 2)
		assert.Contains(t, out.Articles[0].Description, "Story.")
		assert.NotContains(t, out.Articles[0].Description, "Footer.")
		assert.NotContains(t, out.Articles[0].Description, "track()")
		assert.Equal(t, crawl.ErrorMessage+"teaser", out.Articles[1].Description)
	})

	t.Run("keeps enclosures when configured", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<article><p>A.</p></article>`)
		entry := &fulltext.Entry{
			Permalink: "https://example.com/a",
			Enclosures: []fulltext.Enclosure{
				{URL: "https://example.com/a.mp3", Type: "audio/mpeg", Length: 42},
				{Type: "audio/mpeg"},
			},
		}

		b := newBuilder(t, s, feedOf(entry))
		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)
		assert.Equal(t, []fulltext.Enclosure{{URL: "https://example.com/a.mp3", Type: "audio/mpeg", Length: 42}}, out.Articles[0].Enclosures)

		b.Options.KeepEnclosures = false
		out, err = b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)
		assert.Empty(t, out.Articles[0].Enclosures)
	})

	t.Run("falls back to extracted dates and authors", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<article><p>A.</p></article>`)
		date := time.Date(2023, 5, 6, 0, 0, 0, 0, time.UTC)
		b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: "https://example.com/a"}))
		b.Extractor = &mock.Extractor{
			ExtractFn: func(rawHTML, pageURL string) (*fulltext.ExtractResult, error) {
				doc, err := xpath.Parse(rawHTML)
				require.NoError(t, err)
				return &fulltext.ExtractResult{
					Body:    doc.Query("//article", nil)[0],
					Success: true,
					Date:    date,
					Authors: []string{"Byline Person"},
				}, nil
			},
		}

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL})
		require.NoError(t, err)
		assert.Equal(t, date, out.Articles[0].Date)
		assert.Equal(t, []string{"Byline Person"}, out.Articles[0].Authors)
	})
}

func TestBuilder_Language(t *testing.T) {
	t.Parallel()

	detector := &mock.LanguageDetector{
		DetectFn: func(text string) (string, bool) {
			return "de", true
		},
	}
	tests := []struct {
		name string
		page string
		mode fulltext.LanguageMode
		want string
	}{
		{"off", `<html lang="fr"><body><article><p>x</p></article></body></html>`, fulltext.LanguageOff, ""},
		{"declared by the page", `<html lang="fr"><body><article><p>x</p></article></body></html>`, fulltext.LanguageDeclared, "fr"},
		{"declared by the feed", `<article><p>x</p></article>`, fulltext.LanguageDeclared, "en"},
		{"detect keeps a declaration", `<html lang="fr"><body><article><p>x</p></article></body></html>`, fulltext.LanguageDetectMissing, "fr"},
		{"detect always overrides", `<html lang="fr"><body><article><p>x</p></article></body></html>`, fulltext.LanguageDetectAlways, "de"},
		{"drops long tags", `<html lang="english-ish"><body><article><p>x</p></article></body></html>`, fulltext.LanguageDeclared, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newSite()
			s.html(sourceURL, "<rss/>")
			s.html("https://example.com/a", tt.page)
			b := newBuilder(t, s, feedOf(&fulltext.Entry{Permalink: "https://example.com/a"}))
			b.Detector = detector

			out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL, Language: tt.mode})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Articles[0].Language)
		})
	}

	t.Run("detects when nothing is declared", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.html(sourceURL, "<rss/>")
		s.html("https://example.com/a", `<article><p>Guten Tag.</p></article>`)
		b := newBuilder(t, s, &mock.FeedParser{
			ParseFn: func(ctx context.Context, body []byte) (*fulltext.Feed, error) {
				return &fulltext.Feed{Entries: []*fulltext.Entry{{Permalink: "https://example.com/a"}}}, nil
			},
		})
		var sample string
		b.Detector = &mock.LanguageDetector{
			DetectFn: func(text string) (string, bool) {
				sample = text
				return "de", true
			},
		}

		out, err := b.Build(context.Background(), fulltext.FeedRequest{URL: sourceURL, Language: fulltext.LanguageDetectMissing})
		require.NoError(t, err)
		assert.Equal(t, "de", out.Articles[0].Language)
		assert.Equal(t, "Guten Tag.", sample)
	})
}

func TestLanguageSample(t *testing.T) {
	t.Parallel()

	t.Run("keeps short text", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Guten Tag.", crawl.LanguageSample("Guten Tag."))
	})

	t.Run("cuts at a rune boundary", func(t *testing.T) {
		t.Parallel()

		got := crawl.LanguageSample("a" + strings.Repeat("é", 300))
		assert.Equal(t, "a"+strings.Repeat("é", 249), got)
	})

	t.Run("tolerates invalid bytes before the cut", func(t *testing.T) {
		t.Parallel()

		text := "\xff" + strings.Repeat("x", 600)
		assert.Len(t, crawl.LanguageSample(text), 500)
	})
}

func TestStripTracking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/a", "https://example.com/a"},
		{"https://example.com/a?utm_source=rss", "https://example.com/a"},
		{"https://example.com/a?utm_source=rss&utm_medium=feed&id=3", "https://example.com/a?id=3"},
		{"https://example.com/a?b=2&utm_campaign=x&a=1", "https://example.com/a?b=2&a=1"},
		{"https://example.com/a?butm_x=1", "https://example.com/a?butm_x=1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, crawl.StripTracking(tt.in))
		})
	}
}
