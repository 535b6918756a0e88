package feed

import (
	"github.com/bryan-buckman/feedmail/internal/model"
	"github.com/bryan-buckman/feedmail/internal/xmltree"
)

// RDF extracts RSS 1.0 documents. Items are delivered in the order the
// channel's rdf:Seq lists them; a listed resource without a matching
// top-level item is skipped.
type RDF struct{}

// Format implements Extractor.
func (RDF) Format() string { return "rdf" }

// Extract implements Extractor.
func (RDF) Extract(root *xmltree.Node) (*Document, bool) {
	if !root.Is("RDF", nsRDF) {
		return nil, false
	}

	doc := &Document{}
	ch := root.Child("channel", nsRSS10)
	if ch == nil {
		return doc, true
	}

	f := &model.Feed{
		Link:     ch.ChildContent("link", nsRSS10),
		Title:    ch.ChildContent("title", nsRSS10),
		Language: ch.ChildContent("language", nsDC),
		Description: model.Media{
			MIMEType: model.MIMEHTML,
			Content:  ch.ChildContent("description", nsRSS10),
		},
	}
	f.ID, _ = ch.NSAttr("about", nsRDF)
	for _, c := range ch.Children("creator", nsDC) {
		f.Authors.Add(model.Author{Name: c.Content()})
	}
	for _, c := range ch.Children("subject", nsDC) {
		f.Categories.Add(model.Category{Name: c.Content()})
	}
	doc.Feed = f

	seq := ch.Child("items", nsRSS10).Child("Seq", nsRDF)
	for _, li := range seq.Children("li", nsRDF) {
		n := findRDFItem(root, li)
		if n == nil {
			continue
		}
		e := model.NewEntry(f)
		e.ID, _ = n.NSAttr("about", nsRDF)
		e.Link = resolveLink(n, nsRSS10)
		e.Date = n.ChildContent("date", nsDC)
		if lang := n.ChildContent("language", nsDC); lang != "" {
			e.Language = lang
		}
		e.Subject = n.ChildContent("title", nsRSS10)
		e.Text = rssText(n, nsRSS10)
		for _, c := range n.Children("creator", nsDC) {
			e.Authors.Add(model.Author{Name: c.Content()})
		}
		for _, c := range n.Children("subject", nsDC) {
			e.Categories.Add(model.Category{Name: c.Content()})
		}
		doc.Entries = append(doc.Entries, e)
	}
	return doc, true
}

// findRDFItem resolves an rdf:li reference to the top-level item whose
// rdf:about matches its rdf:resource.
func findRDFItem(root, li *xmltree.Node) *xmltree.Node {
	resource, ok := li.NSAttr("resource", nsRDF)
	if !ok {
		return nil
	}
	for _, item := range root.Children("item", nsRSS10) {
		if about, ok := item.NSAttr("about", nsRDF); ok && about == resource {
			return item
		}
	}
	return nil
}
