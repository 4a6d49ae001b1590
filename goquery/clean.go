package goquery

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	videoEmbed   = regexp.MustCompile(`(?i)//(www\.)?(youtube|youtube-nocookie|vimeo|player\.vimeo|dailymotion)\.com`)
	shareWidget  = regexp.MustCompile(`(?i)(^|[\s_-])(share|sharing|social|sociable|addthis)([\s_-]|$)`)
	emptyWrapper = "span, font, b, i, em, strong, u, small, p"
)

// Prune strips elements from node that rarely belong to an article:
// forms, share widgets, non-video embeds, tracking images, inline styles,
// link-heavy lists and tables, and formatting wrappers left empty.
func (s *Scorer) Prune(node *html.Node) {
	if node == nil {
		return
	}
	sel := goquery.NewDocumentFromNode(node).Selection

	sel.Find("style, link, form, input, button, select, textarea, object, applet, aside, nav").Remove()
	sel.Find("iframe, embed").Each(func(_ int, e *goquery.Selection) {
		if !videoEmbed.MatchString(e.AttrOr("src", "")) {
			e.Remove()
		}
	})
	sel.Find("*").Each(func(_ int, e *goquery.Selection) {
		class := e.AttrOr("class", "") + " " + e.AttrOr("id", "")
		if shareWidget.MatchString(class) && len(strings.TrimSpace(e.Text())) < 500 {
			e.Remove()
		}
	})
	sel.Find("img").Each(func(_ int, e *goquery.Selection) {
		if isTiny(e.AttrOr("width", "")) || isTiny(e.AttrOr("height", "")) {
			e.Remove()
		}
	})

	for _, tag := range []string{"table", "ul", "div"} {
		sel.Find(tag).Each(func(_ int, e *goquery.Selection) {
			if shouldDrop(e) {
				e.Remove()
			}
		})
	}

	sel.Find("*").RemoveAttr("style")
	sel.RemoveAttr("style")

	removeEmptyWrappers(sel)
}

// RemoveScripts strips script elements and inline script handlers.
func (s *Scorer) RemoveScripts(node *html.Node) {
	if node == nil {
		return
	}
	sel := goquery.NewDocumentFromNode(node).Selection
	sel.Find("script").Remove()
	for _, n := range append([]*html.Node{node}, sel.Find("*").Nodes...) {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if strings.HasPrefix(strings.ToLower(a.Key), "on") {
				continue
			}
			if (a.Key == "href" || a.Key == "src") && strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
}

// shouldDrop decides whether a list, table or div looks like chrome
// rather than content.
func shouldDrop(e *goquery.Selection) bool {
	n := e.Get(0)
	if n.Parent == nil {
		return false
	}
	weight := classWeight(n)
	if weight < 0 {
		return true
	}

	text := strings.TrimSpace(e.Text())
	if strings.Count(text, ",") >= 10 {
		return false
	}

	paragraphs := e.Find("p").Length()
	images := e.Find("img").Length()
	items := e.Find("li").Length() - 100
	inputs := e.Find("input").Length()
	embeds := e.Find("embed, iframe").Length()
	density := linkDensity(n)
	length := len(text)

	switch {
	case images > 1 && images > paragraphs:
		return true
	case items > paragraphs && n.DataAtom != atom.Ul && n.DataAtom != atom.Ol:
		return true
	case inputs > paragraphs/3:
		return true
	case length < minParagraphLen && (images == 0 || images > 2) && embeds == 0:
		return true
	case weight < 25 && density > 0.2:
		return true
	case weight >= 25 && density > 0.5:
		return true
	case (embeds == 1 && length < 75) || embeds > 1:
		return true
	}
	return false
}

func removeEmptyWrappers(sel *goquery.Selection) {
	nodes := sel.Find(emptyWrapper).Nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.Parent == nil {
			continue
		}
		e := goquery.NewDocumentFromNode(n).Selection
		if strings.TrimSpace(e.Text()) != "" {
			continue
		}
		if e.Find("img, iframe, embed, video, audio, object, br").Length() > 0 {
			continue
		}
		n.Parent.RemoveChild(n)
	}
}

func isTiny(dimension string) bool {
	v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(dimension), "px"))
	return err == nil && v <= 2
}
