package goquery_test

import (
	"testing"

	"github.com/fwojciec/fulltext/goquery"
	"github.com/fwojciec/fulltext/xpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const articlePage = `<html><head><title>The Long Article Title | Example News</title></head><body>
<div id="header"><a href="/">Home</a> <a href="/news">News</a></div>
<div class="sidebar"><p>Sidebar text that is long enough to count, but should lose, really.</p></div>
<div id="story" class="article-body">
<p>First paragraph of the article, with commas, more commas, and enough text to score well above others.</p>
<p>Second paragraph of the article, also with plenty of words, commas, and content to be recognised.</p>
<p>Third paragraph, continuing the story with more detail, context, and a natural conclusion here.</p>
</div>
<div class="comments"><p>Comment one, which is long enough to be considered, but penalised anyway.</p></div>
</body></html>`

func parse(t *testing.T, markup string) *xpath.Document {
	t.Helper()
	doc, err := xpath.Parse(markup)
	require.NoError(t, err)
	return doc
}

func TestScorer_Score(t *testing.T) {
	t.Parallel()

	t.Run("finds the densest block", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, articlePage)
		result, err := goquery.NewScorer().Score(doc.Root, "https://example.com/story")
		require.NoError(t, err)
		require.NotNil(t, result.Content)

		text := xpath.Text(result.Content)
		assert.Contains(t, text, "First paragraph")
		assert.Contains(t, text, "Third paragraph")
		assert.NotContains(t, text, "Sidebar text")
		assert.NotContains(t, text, "Comment one")
		assert.NotContains(t, text, "Home")
	})

	t.Run("trims the site name from the title element", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, articlePage)
		result, err := goquery.NewScorer().Score(doc.Root, "")
		require.NoError(t, err)
		assert.Equal(t, "The Long Article Title", result.Title)
	})

	t.Run("prefers a single h1 of reasonable length", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><head><title>Short | Site</title></head><body><h1>A Headline Worth Reading</h1><p>text</p></body></html>`)
		result, err := goquery.NewScorer().Score(doc.Root, "")
		require.NoError(t, err)
		assert.Equal(t, "A Headline Worth Reading", result.Title)
	})

	t.Run("keeps a title whose prefix is a single word", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><head><title>Review: The New Film</title></head><body></body></html>`)
		result, err := goquery.NewScorer().Score(doc.Root, "")
		require.NoError(t, err)
		assert.Equal(t, "Review: The New Film", result.Title)
	})

	t.Run("falls back to body text without paragraphs", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><body>Just some loose text</body></html>`)
		result, err := goquery.NewScorer().Score(doc.Root, "")
		require.NoError(t, err)
		require.NotNil(t, result.Content)
		assert.Equal(t, "Just some loose text", xpath.Text(result.Content))
	})

	t.Run("returns no content for an empty page", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><body>  </body></html>`)
		result, err := goquery.NewScorer().Score(doc.Root, "")
		require.NoError(t, err)
		assert.Nil(t, result.Content)
	})

	t.Run("merges qualifying siblings", func(t *testing.T) {
		t.Parallel()

		doc := parse(t, `<html><body><div>
<div class="post"><p>Opening part of the article, with commas, and a long enough sentence to count.</p><p>More of the opening part, with commas, and another long enough sentence here.</p></div>
<p>A standalone paragraph between the two containers that is clearly part of the article body text.</p>
<div class="related-links"><a href="/1">Related one</a> <a href="/2">Related two</a></div>
</div></body></html>`)
		result, err := goquery.NewScorer().Score(doc.Root, "")
		require.NoError(t, err)
		require.NotNil(t, result.Content)

		text := xpath.Text(result.Content)
		assert.Contains(t, text, "Opening part")
		assert.Contains(t, text, "standalone paragraph")
		assert.NotContains(t, text, "Related one")
	})
}

func TestScorer_Prune(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body><div id="root">
<p style="color:red">Real content paragraph that is long enough to stay in place.</p>
<div class="share-buttons"><a href="#">Tweet</a></div>
<img src="pixel.gif" width="1" height="1">
<form><input name="q"></form>
<p><span> </span></p>
<img src="photo.jpg" width="600">
</div></body></html>`)
	root := doc.Query("//div[@id='root']", nil)[0]

	goquery.NewScorer().Prune(root)

	out := xpath.OuterHTML(root)
	assert.Contains(t, out, "Real content paragraph")
	assert.Contains(t, out, "photo.jpg")
	assert.NotContains(t, out, "pixel.gif")
	assert.NotContains(t, out, "Tweet")
	assert.NotContains(t, out, "<form")
	assert.NotContains(t, out, "<span")
	assert.NotContains(t, out, "style=")
	assert.Len(t, doc.Query(".//p", root), 1)
}

func TestScorer_RemoveScripts(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body><div id="root" onclick="track()"><script>alert(1)</script><a href="javascript:void(0)">x</a><p>ok</p></div></body></html>`)
	root := doc.Query("//div[@id='root']", nil)[0]

	goquery.NewScorer().RemoveScripts(root)

	assert.Equal(t, `<div id="root"><a>x</a><p>ok</p></div>`, xpath.OuterHTML(root))
}

func TestScorer_Nil(t *testing.T) {
	t.Parallel()

	s := goquery.NewScorer()
	assert.NotPanics(t, func() {
		s.Prune((*html.Node)(nil))
		s.RemoveScripts(nil)
	})
}
