package goquery_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/fulltext"
	"github.com/fwojciec/fulltext/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func body(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc := parse(t, "<html><body>"+markup+"</body></html>")
	nodes := doc.Query("//body/*[1]", nil)
	require.Len(t, nodes, 1)
	return nodes[0]
}

func TestFormatter_Format(t *testing.T) {
	t.Parallel()

	t.Run("makes relative URLs absolute", func(t *testing.T) {
		t.Parallel()

		out, err := goquery.NewFormatter().Format(
			body(t, `<div><a href="/a">A</a><img src="img.png"><a href="#top">top</a></div>`),
			fulltext.FormatOptions{BaseURL: "https://example.com/dir/page", Links: fulltext.LinksPreserve},
		)
		require.NoError(t, err)
		assert.Contains(t, out.HTML, `href="https://example.com/a"`)
		assert.Contains(t, out.HTML, `src="https://example.com/dir/img.png"`)
		assert.Contains(t, out.HTML, `href="#top"`)
	})

	t.Run("removes links but keeps their text", func(t *testing.T) {
		t.Parallel()

		out, err := goquery.NewFormatter().Format(
			body(t, `<div><p>See <a href="/a">this <b>page</b></a>.</p></div>`),
			fulltext.FormatOptions{Links: fulltext.LinksRemove},
		)
		require.NoError(t, err)
		assert.Equal(t, `<div><p>See this <b>page</b>.</p></div>`, out.HTML)
		assert.Equal(t, "See this page.", out.Text)
	})

	t.Run("turns links into numbered footnotes", func(t *testing.T) {
		t.Parallel()

		out, err := goquery.NewFormatter().Format(
			body(t, `<div><p>See <a href="https://x.com/1">one</a>, <a href="https://x.com/2">two</a> and <a href="https://x.com/1">again</a>.</p></div>`),
			fulltext.FormatOptions{BaseURL: "https://example.com/", Links: fulltext.LinksFootnotes},
		)
		require.NoError(t, err)
		assert.Contains(t, out.HTML, "one<sup>[1]</sup>")
		assert.Contains(t, out.HTML, "two<sup>[2]</sup>")
		assert.Contains(t, out.HTML, "again<sup>[1]</sup>")
		assert.Equal(t, 2, strings.Count(out.HTML, "<li>"))
	})

	t.Run("skips footnotes on wikipedia", func(t *testing.T) {
		t.Parallel()

		out, err := goquery.NewFormatter().Format(
			body(t, `<div><a href="/wiki/Go">Go</a></div>`),
			fulltext.FormatOptions{BaseURL: "https://en.wikipedia.org/wiki/X", Links: fulltext.LinksFootnotes},
		)
		require.NoError(t, err)
		assert.Contains(t, out.HTML, `<a href="https://en.wikipedia.org/wiki/Go">Go</a>`)
		assert.NotContains(t, out.HTML, "<sup>")
	})

	t.Run("narrows to the selector", func(t *testing.T) {
		t.Parallel()

		out, err := goquery.NewFormatter().Format(
			body(t, `<div><p>chrome</p><section class="inner"><p>kept</p></section></div>`),
			fulltext.FormatOptions{Selector: "section.inner"},
		)
		require.NoError(t, err)
		assert.Equal(t, `<section class="inner"><p>kept</p></section>`, out.HTML)
		assert.True(t, out.Matched)
	})

	t.Run("ignores a selector that matches nothing", func(t *testing.T) {
		t.Parallel()

		out, err := goquery.NewFormatter().Format(
			body(t, `<div><p>kept</p></div>`),
			fulltext.FormatOptions{Selector: ".missing"},
		)
		require.NoError(t, err)
		assert.Equal(t, `<div><p>kept</p></div>`, out.HTML)
		assert.False(t, out.Matched)
	})

	t.Run("drops empty paragraphs", func(t *testing.T) {
		t.Parallel()

		out, err := goquery.NewFormatter().Format(
			body(t, `<div><p></p><p> </p><p><img src="x.png"/></p><p>text</p></div>`),
			fulltext.FormatOptions{},
		)
		require.NoError(t, err)
		assert.Equal(t, `<div><p><img src="x.png"/></p><p>text</p></div>`, out.HTML)
	})

	t.Run("rejects a nil body", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewFormatter().Format(nil, fulltext.FormatOptions{})
		assert.Equal(t, fulltext.EINVALID, fulltext.ErrorCode(err))
	})
}
