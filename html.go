package inlinestyles

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// xmlProlog matches a leading XML declaration and document type declaration,
// including an internal subset.
var xmlProlog = regexp.MustCompile(`(?is)^\s*(?:<\?xml\s[^>]*\?>\s*)?(?:<!doctype\s[^>\[]*(?:\[[^\]]*\])?\s*>\s*)?`)

// splitProlog cuts the XML prolog off a fragment. The HTML tokenizer would
// turn the declaration into a comment and drop the document type.
func splitProlog(data []byte) (prolog, rest []byte) {
	n := len(xmlProlog.Find(data))
	if len(bytes.TrimSpace(data[:n])) == 0 {
		return nil, data
	}
	return data[:n], data[n:]
}

// LoadDocument reads a document. If fragment is true the input is parsed as
// a fragment in the context of a body element, so that standalone SVG or
// partial HTML is not wrapped in html, head and body elements. A leading XML
// declaration and doctype of a fragment are kept verbatim and written back
// by Render.
func LoadDocument(r io.Reader, fragment bool) (*goquery.Document, error) {
	if !fragment {
		return goquery.NewDocumentFromReader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	prolog, body := splitProlog(data)

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(body), context)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.DocumentNode}
	if len(prolog) > 0 {
		root.AppendChild(&html.Node{Type: html.RawNode, Data: string(prolog)})
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Render writes the document as HTML.
func Render(w io.Writer, doc *goquery.Document) error {
	return html.Render(w, doc.Get(0))
}

// ProcessHTMLFile opens an HTML file, inlines the styles and returns the DOM
// structure.
func (in *Inliner) ProcessHTMLFile(filename string) (*goquery.Document, error) {
	r, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return in.process(r, false)
}

// ProcessHTMLChunk reads the HTML text, inlines the styles and returns the
// DOM structure.
func (in *Inliner) ProcessHTMLChunk(htmltext string) (*goquery.Document, error) {
	return in.process(strings.NewReader(htmltext), false)
}

// ProcessFragment is like ProcessHTMLChunk for fragments such as a standalone
// svg element.
func (in *Inliner) ProcessFragment(text string) (*goquery.Document, error) {
	return in.process(strings.NewReader(text), true)
}

func (in *Inliner) process(r io.Reader, fragment bool) (*goquery.Document, error) {
	doc, err := LoadDocument(r, fragment)
	if err != nil {
		return nil, err
	}
	if _, err = in.Apply(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// setText replaces the children of the selected elements with a single text
// node. goquery's SetText goes through the HTML parser, which would keep
// entities literally inside a style element.
func setText(sel *goquery.Selection, text string) {
	sel.Empty()
	for _, n := range sel.Nodes {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}
