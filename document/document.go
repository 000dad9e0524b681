// Package document exposes a parsed content tree with a stable node/offset
// indexing, consumed by the styler.
//
// Offsets count node boundaries in full document order : entering an
// element advances the offset by one, a text node advances it by the length
// of its data. This is the "fixed" coordinate space of the styler; the index
// built here also serves as the external reference for its debug-mode
// offset-consistency check.
package document

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/language"

	"github.com/benoitkugler/pagestyle/logger"
)

// Document is an HTML document parsed by net/html, with its offset index.
type Document struct {
	root *html.Node

	starts map[*html.Node]int
	ends   map[*html.Node]int
	// sorted by start offset, for NodeAtOffset
	ordered []*html.Node
	byID    map[string]*html.Node

	lang language.Tag
	max  int
}

// Parse reads an HTML document and builds its offset index.
func Parse(r io.Reader) (*Document, error) {
	logger.ProgressLogger.Println("Parsing content document")

	root, err := html.ParseWithOptions(r, html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, fmt.Errorf("invalid html input: %s", err)
	}
	if root.FirstChild == nil {
		return nil, fmt.Errorf("invalid html input: empty document")
	}

	out := &Document{
		starts: map[*html.Node]int{},
		ends:   map[*html.Node]int{},
		byID:   map[string]*html.Node{},
	}

	// html.Parse wraps the <html> tag in a DocumentNode
	node := root.FirstChild
	for node != nil && node.Type != html.ElementNode {
		node = node.NextSibling
	}
	if node == nil {
		return nil, fmt.Errorf("invalid html input: no root element")
	}
	out.root = node

	if lang := Attr(out.root, "lang"); lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			logger.WarningLogger.Printf("invalid lang attribute %q: %s", lang, err)
		} else {
			out.lang = tag
		}
	}

	out.max = out.index(out.root, 0)
	return out, nil
}

// index assigns offsets to the subtree rooted at n, starting at `offset`,
// and returns the offset past the subtree.
func (d *Document) index(n *html.Node, offset int) int {
	switch n.Type {
	case html.ElementNode:
		d.starts[n] = offset
		d.ordered = append(d.ordered, n)
		if id := Attr(n, "id"); id != "" {
			if _, in := d.byID[id]; !in {
				d.byID[id] = n
			}
		}
		offset++
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			offset = d.index(child, offset)
		}
	case html.TextNode:
		d.starts[n] = offset
		d.ordered = append(d.ordered, n)
		offset += len(n.Data)
	default:
		// comments, doctype... occupy no offset
		d.starts[n] = offset
	}
	d.ends[n] = offset
	return offset
}

// Root returns the root element of the document.
func (d *Document) Root() *html.Node { return d.root }

// Lang returns the document language, or the undetermined tag.
func (d *Document) Lang() language.Tag { return d.lang }

// MaxOffset is the offset just past the last node of the document.
func (d *Document) MaxOffset() int { return d.max }

// OffsetOf returns the start offset of the node in full document order.
func (d *Document) OffsetOf(n *html.Node) int { return d.starts[n] }

// NodeOffset returns the offset of a position inside `node` : its start
// offset shifted by `innerOffset`, or, if `deep`, the last offset assigned
// within its subtree.
func (d *Document) NodeOffset(node *html.Node, innerOffset int, deep bool) int {
	if deep {
		return d.ends[node]
	}
	return d.starts[node] + innerOffset
}

// NodeAtOffset returns the last node starting at or before `offset`.
func (d *Document) NodeAtOffset(offset int) *html.Node {
	i := sort.Search(len(d.ordered), func(i int) bool {
		return d.starts[d.ordered[i]] > offset
	})
	if i == 0 {
		return d.root
	}
	return d.ordered[i-1]
}

// ElementByID returns the element carrying the given id, or nil.
func (d *Document) ElementByID(id string) *html.Node { return d.byID[id] }

// Attr returns the value of the attribute `name` on an element node,
// or "".
func Attr(n *html.Node, name string) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val
		}
	}
	return ""
}

// IsBody reports whether the element is the body-equivalent element of the
// document (writing-mode and direction are re-promoted when it is reached).
func IsBody(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == atom.Body
}

// Tag returns the lowercased tag name of an element node, or "".
func Tag(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}
