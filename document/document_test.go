package document

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/benoitkugler/pagestyle/utils/testutils"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestParse(t *testing.T) {
	doc := mustParse(t, `<html lang="fr"><head></head><body><p>ab</p></body></html>`)

	testutils.AssertEqual(t, Tag(doc.Root()), "html")
	testutils.AssertEqual(t, doc.Lang().String(), "fr")

	// net/html always synthesizes html/head/body
	empty := mustParse(t, "")
	testutils.AssertEqual(t, Tag(empty.Root()), "html")
	testutils.AssertEqual(t, empty.MaxOffset(), 3)

	// a failing reader surfaces its own error
	_, err := Parse(failingReader{})
	if err == nil || !strings.Contains(err.Error(), "read failure") {
		t.Fatalf("unexpected error %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failure") }

func TestOffsets(t *testing.T) {
	// html=0 head=1 body=2 p=3 "ab"=4..6 span=6 "cd"=7..9
	doc := mustParse(t, `<html><head></head><body><p>ab</p><span>cd</span></body></html>`)

	testutils.AssertEqual(t, doc.MaxOffset(), 9)
	testutils.AssertEqual(t, doc.OffsetOf(doc.Root()), 0)

	var p, span *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch Tag(n) {
		case "p":
			p = n
		case "span":
			span = n
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc.Root())

	testutils.AssertEqual(t, doc.OffsetOf(p), 3)
	testutils.AssertEqual(t, doc.OffsetOf(span), 6)

	// text nodes span their data length
	text := p.FirstChild
	testutils.AssertEqual(t, doc.OffsetOf(text), 4)
	testutils.AssertEqual(t, doc.NodeOffset(text, 1, false), 5)
	testutils.AssertEqual(t, doc.NodeOffset(p, 0, true), 6)
	testutils.AssertEqual(t, doc.NodeOffset(doc.Root(), 0, true), 9)
}

func TestNodeAtOffset(t *testing.T) {
	doc := mustParse(t, `<html><head></head><body><p>ab</p><span>cd</span></body></html>`)

	testutils.AssertEqual(t, Tag(doc.NodeAtOffset(0)), "html")
	testutils.AssertEqual(t, Tag(doc.NodeAtOffset(3)), "p")
	// inside the "ab" text run
	testutils.AssertEqual(t, doc.NodeAtOffset(5).Type, html.TextNode)
	testutils.AssertEqual(t, Tag(doc.NodeAtOffset(6)), "span")
	// past the end : the last node
	testutils.AssertEqual(t, doc.NodeAtOffset(100).Type, html.TextNode)
}

func TestElementByID(t *testing.T) {
	doc := mustParse(t, `<html><body><p id="a">x</p><p id="a">dup</p><div id="b"></div></body></html>`)

	a := doc.ElementByID("a")
	if a == nil {
		t.Fatal("missing #a")
	}
	// the first declaration wins
	testutils.AssertEqual(t, a.FirstChild.Data, "x")
	testutils.AssertEqual(t, Tag(doc.ElementByID("b")), "div")
	if doc.ElementByID("nope") != nil {
		t.Fatal("unexpected element")
	}
}

func TestHelpers(t *testing.T) {
	doc := mustParse(t, `<html><body class="main">x</body></html>`)
	body := doc.Root().FirstChild.NextSibling

	testutils.AssertEqual(t, IsBody(body), true)
	testutils.AssertEqual(t, IsBody(doc.Root()), false)
	testutils.AssertEqual(t, IsBody(nil), false)
	testutils.AssertEqual(t, Attr(body, "class"), "main")
	testutils.AssertEqual(t, Attr(body, "missing"), "")
	testutils.AssertEqual(t, Tag(body.FirstChild), "")
}
