package document

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document pairs the raw hypertext of a fetched page with its parsed tree.
// It is built once per extraction call and shared read-only by every
// extractor, so they all see the identical tree.
type Document struct {
	Raw string
	doc *goquery.Document
}

// Parse builds a Document from raw hypertext. Parsing is permissive: real
// pages are not guaranteed well-formed, so malformed markup yields a partial
// tree rather than an error.
func Parse(raw string) *Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		// html.Parse never fails on a string reader in practice, but the
		// contract here is total: fall back to an empty tree.
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return &Document{Raw: raw, doc: doc}
}

// Find selects nodes by CSS selector.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Text returns the rendered text of the whole document, tags stripped.
func (d *Document) Text() string {
	return d.doc.Text()
}

var titleHeadingSelectors = []string{
	"h1.pr-new-br",
	"h1.product-name",
	"h1[data-testid='product-title']",
	"h1",
}

// TitleHeading returns the first non-empty product title heading, or an
// empty selection when the page has none.
func (d *Document) TitleHeading() *goquery.Selection {
	for _, selector := range titleHeadingSelectors {
		sel := d.doc.Find(selector).First()
		if sel.Length() > 0 && strings.TrimSpace(sel.Text()) != "" {
			return sel
		}
	}
	return d.doc.Find("h1").First()
}

// OwnText returns the text of a selection's direct text-node children,
// excluding text that belongs to descendant elements.
func OwnText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				b.WriteString(child.Data)
			}
		}
	}
	return b.String()
}
