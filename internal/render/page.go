// Package render applies typed records to the campaign page document. Each
// section renderer mutates only the containers it owns and leaves the rest
// of the page alone.
package render

import (
	"bytes"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Page is one rendered snapshot of the campaign page.
type Page struct {
	doc *goquery.Document
}

// LoadPage parses a page template.
func LoadPage(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &RenderError{Message: "failed to parse page template", Cause: err}
	}
	return &Page{doc: doc}, nil
}

// NewPage parses a page template held in memory.
func NewPage(template []byte) (*Page, error) {
	return LoadPage(bytes.NewReader(template))
}

// Document exposes the underlying document for queries.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// HTML serializes the page.
func (p *Page) HTML() (string, error) {
	html, err := goquery.OuterHtml(p.doc.Selection)
	if err != nil {
		return "", &RenderError{Message: "failed to serialize page", Cause: err}
	}
	return html, nil
}

// ShowLoading marks the page as loading.
func (p *Page) ShowLoading() {
	p.doc.Find("body").AddClass("loading")
}

// HideLoading clears the loading mark.
func (p *Page) HideLoading() {
	p.doc.Find("body").RemoveClass("loading")
}

// Loading reports whether the loading mark is set.
func (p *Page) Loading() bool {
	return p.doc.Find("body").HasClass("loading")
}

// Rescan hands freshly rendered elements to the entrance-animation shell by
// marking every animated element as initialised.
func (p *Page) Rescan() {
	p.doc.Find("[data-aos]").AddClass("aos-init")
}

// byID finds the element with the given id. The lookup does not go through a
// selector so ids need no escaping.
func (p *Page) byID(id string) *goquery.Selection {
	return p.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
}
