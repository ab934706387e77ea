package document

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Tree is a parsed HTML document exposed through a small query surface.
// A Tree is owned by the caller that parsed it and should be released with
// Release once extraction is done.
type Tree struct {
	doc *goquery.Document
}

// Parse reads HTML from r. Malformed markup is repaired by the HTML5 parsing
// algorithm rather than rejected; if r cannot be read the returned tree is
// empty. Parse never returns nil.
func Parse(r io.Reader) *Tree {
	root, err := html.Parse(r)
	if err != nil {
		root = &html.Node{Type: html.DocumentNode}
	}
	return &Tree{doc: goquery.NewDocumentFromNode(root)}
}

// ParseString is Parse over an in-memory string.
func ParseString(s string) *Tree {
	return Parse(strings.NewReader(s))
}

// Release drops the parsed tree. Queries on a released tree return nothing.
func (t *Tree) Release() {
	if t == nil {
		return
	}
	t.doc = nil
}

func (t *Tree) root() *goquery.Selection {
	if t == nil || t.doc == nil {
		return &goquery.Selection{}
	}
	return t.doc.Selection
}

// ByTag returns all elements with the given tag name, in document order.
func (t *Tree) ByTag(tag string) []Node {
	return wrap(t.root().Find(tag))
}

// ByClass returns all elements carrying a class token equal to marker or
// starting with marker followed by "-", so generated suffixes (e.g.
// "Name-dowf0z-0") do not need to be known in advance.
func (t *Tree) ByClass(marker string) []Node {
	if marker == "" {
		return nil
	}
	return wrap(t.root().Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return hasClassMarker(class, marker)
	}))
}

// Select returns all elements matching a CSS selector. An invalid selector
// matches nothing.
func (t *Tree) Select(css string) []Node {
	return wrap(safeFind(t.root(), css))
}

// Links returns the href of every anchor that carries one, in document order.
func (t *Tree) Links() []string {
	var hrefs []string
	t.root().Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

// Node is a single element of a Tree.
type Node struct {
	sel *goquery.Selection
}

// Exists reports whether the node refers to an element.
func (n Node) Exists() bool {
	return n.sel != nil && n.sel.Length() > 0
}

// Text returns the combined text of the node and its descendants.
func (n Node) Text() string {
	if !n.Exists() {
		return ""
	}
	return n.sel.Text()
}

// Attr returns the value of the named attribute.
func (n Node) Attr(name string) (string, bool) {
	if !n.Exists() {
		return "", false
	}
	return n.sel.Attr(name)
}

// Parent returns the parent element. The document root has no parent.
func (n Node) Parent() Node {
	if !n.Exists() {
		return Node{}
	}
	return Node{sel: n.sel.Parent()}
}

// ByTag returns descendant elements with the given tag name.
func (n Node) ByTag(tag string) []Node {
	if !n.Exists() {
		return nil
	}
	return wrap(n.sel.Find(tag))
}

// Select returns descendant elements matching a CSS selector.
func (n Node) Select(css string) []Node {
	if !n.Exists() {
		return nil
	}
	return wrap(safeFind(n.sel, css))
}

func wrap(sel *goquery.Selection) []Node {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, Node{sel: s})
	})
	return nodes
}

// safeFind shields callers from the panic goquery raises on a selector that
// does not compile.
func safeFind(sel *goquery.Selection, css string) (found *goquery.Selection) {
	defer func() {
		if recover() != nil {
			found = &goquery.Selection{}
		}
	}()
	return sel.Find(css)
}

func hasClassMarker(class, marker string) bool {
	for _, tok := range strings.Fields(class) {
		if tok == marker || strings.HasPrefix(tok, marker+"-") {
			return true
		}
	}
	return false
}
