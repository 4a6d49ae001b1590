// Package xpath provides the mutable, XPath-addressable document model the
// extraction pipeline works on. It wraps golang.org/x/net/html trees and
// evaluates expressions with github.com/antchfx/xpath.
package xpath

import (
	"math"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"github.com/fwojciec/fulltext"
	"golang.org/x/net/html"
)

// Document is a parsed page. A Document is owned by one extraction at a
// time and is not safe for concurrent mutation.
type Document struct {
	// Root is the document node.
	Root *html.Node

	// Tidied reports whether the tidy pre-cleanup changed the markup.
	Tidied bool
}

type options struct {
	parser string
	tidy   bool
}

// Option configures Parse.
type Option func(*options)

// WithParser selects the HTML parser by rule file name. Unknown names fall
// back to fulltext.DefaultParser.
func WithParser(name string) Option {
	return func(o *options) {
		o.parser = name
	}
}

// WithTidy enables the lenient pre-cleanup pass.
func WithTidy(on bool) Option {
	return func(o *options) {
		o.tidy = on
	}
}

// Parse builds a Document from markup.
//
// The libxml parser treats <noscript> content as markup, which is where
// many sites put the no-JavaScript version of their article. The html5lib
// parser follows the HTML5 algorithm to the letter.
func Parse(markup string, opts ...Option) (*Document, error) {
	o := options{parser: fulltext.DefaultParser}
	for _, opt := range opts {
		opt(&o)
	}

	doc := &Document{}
	if o.tidy {
		cleaned := Tidy(markup)
		doc.Tidied = cleaned != markup
		markup = cleaned
	}

	var (
		root *html.Node
		err  error
	)
	switch o.parser {
	case fulltext.ParserHTML5:
		root, err = html.Parse(strings.NewReader(markup))
	default:
		root, err = html.ParseWithOptions(strings.NewReader(markup), html.ParseOptionEnableScripting(false))
	}
	if err != nil {
		return nil, fulltext.Errorf(fulltext.EPARSE, "parse html: %v", err)
	}
	doc.Root = root
	return doc, nil
}

// Kind tags the result of an expression.
type Kind int

const (
	NoMatch Kind = iota
	StringMatch
	NodeSetMatch
)

// Match is the result of evaluating an expression. Exactly one of Text
// and Nodes is meaningful, selected by Kind.
type Match struct {
	Kind  Kind
	Text  string
	Nodes []*html.Node
}

// Found reports whether the expression produced anything.
func (m Match) Found() bool {
	return m.Kind != NoMatch
}

// First returns the first node of a node-set match.
func (m Match) First() *html.Node {
	if m.Kind != NodeSetMatch {
		return nil
	}
	return m.Nodes[0]
}

// Evaluate evaluates expr with context as the context node; a nil context
// means the document node. Expressions starting with // search the
// subtree under context.
func (d *Document) Evaluate(expr string, context *html.Node) Match {
	if context == nil {
		context = d.Root
	}
	return Evaluate(expr, context)
}

// Query is Evaluate restricted to node sets.
func (d *Document) Query(expr string, context *html.Node) []*html.Node {
	if m := d.Evaluate(expr, context); m.Kind == NodeSetMatch {
		return m.Nodes
	}
	return nil
}

// Evaluate evaluates expr against the subtree rooted at context.
//
// A string result is a StringMatch unless blank. A boolean is a
// StringMatch "true" when true. A number is a StringMatch unless zero or
// NaN. Node sets are snapshotted into a slice so callers may mutate the
// tree while walking them; attribute nodes become detached text nodes
// carrying the attribute value. Malformed expressions yield NoMatch.
func Evaluate(expr string, context *html.Node) (m Match) {
	if context == nil || strings.TrimSpace(expr) == "" {
		return Match{}
	}
	defer func() {
		if recover() != nil {
			m = Match{}
		}
	}()

	compiled, err := xpath.Compile(expr)
	if err != nil {
		return Match{}
	}

	switch v := compiled.Evaluate(htmlquery.CreateXPathNavigator(context)).(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return Match{}
		}
		return Match{Kind: StringMatch, Text: v}
	case bool:
		if !v {
			return Match{}
		}
		return Match{Kind: StringMatch, Text: "true"}
	case float64:
		if v == 0 || math.IsNaN(v) {
			return Match{}
		}
		return Match{Kind: StringMatch, Text: strconv.FormatFloat(v, 'f', -1, 64)}
	case *xpath.NodeIterator:
		nodes := collect(v)
		if len(nodes) == 0 {
			return Match{}
		}
		return Match{Kind: NodeSetMatch, Nodes: nodes}
	}
	return Match{}
}

func collect(it *xpath.NodeIterator) []*html.Node {
	var nodes []*html.Node
	seen := make(map[*html.Node]bool)
	for it.MoveNext() {
		nav, ok := it.Current().(*htmlquery.NodeNavigator)
		if !ok {
			continue
		}
		if nav.NodeType() == xpath.AttributeNode {
			nodes = append(nodes, &html.Node{Type: html.TextNode, Data: nav.Value()})
			continue
		}
		n := nav.Current()
		if seen[n] {
			continue
		}
		seen[n] = true
		nodes = append(nodes, n)
	}
	return nodes
}

// Literal quotes s as an XPath string literal.
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}

// ClassToken returns an expression testing whether the class attribute
// contains token as a whole whitespace-separated word.
func ClassToken(token string) string {
	return "contains(concat(' ',normalize-space(@class),' '),' " + token + " ')"
}
