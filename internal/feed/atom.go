package feed

import (
	"github.com/bryan-buckman/feedmail/internal/model"
	"github.com/bryan-buckman/feedmail/internal/xmltree"
)

// Atom extracts RFC 4287 documents.
type Atom struct{}

// Format implements Extractor.
func (Atom) Format() string { return "atom" }

// Extract implements Extractor.
func (Atom) Extract(root *xmltree.Node) (*Document, bool) {
	if !root.Is("feed", nsAtom) {
		return nil, false
	}

	f := &model.Feed{
		ID:          root.ChildContent("id", nsAtom),
		Link:        atomLink(root),
		Title:       root.ChildContent("title", nsAtom),
		Language:    atomLang(root, ""),
		Description: atomText(root, model.Media{MIMEType: model.MIMEPlain}),
	}
	atomPeople(root, &f.Authors)
	atomCategories(root, &f.Categories)

	doc := &Document{Feed: f}
	for _, n := range root.Children("entry", nsAtom) {
		e := model.NewEntry(f)
		e.ID = n.ChildContent("id", nsAtom)
		e.Link = atomLink(n)
		e.Date = n.ChildContent("updated", nsAtom)
		if e.Date == "" {
			e.Date = n.ChildContent("published", nsAtom)
		}
		e.Language = atomLang(n, f.Language)
		e.Subject = n.ChildContent("title", nsAtom)
		e.Text = atomText(n, f.Description)
		atomPeople(n, &e.Authors)
		atomCategories(n, &e.Categories)
		doc.Entries = append(doc.Entries, e)
	}
	return doc, true
}

// atomLink returns the href of the first link whose rel is absent or
// "alternate".
func atomLink(n *xmltree.Node) string {
	for _, l := range n.Children("link", nsAtom) {
		if rel, ok := l.Attr("rel"); ok && rel != "alternate" {
			continue
		}
		href, _ := l.Attr("href")
		return href
	}
	return ""
}

func atomLang(n *xmltree.Node, inherited string) string {
	if lang := n.Lang(); lang != "" {
		return lang
	}
	if lang := n.ChildContent("language", nsAtom); lang != "" {
		return lang
	}
	return inherited
}

// atomText walks content, media:group/media:description, summary, subtitle
// and description, returning fallback when all are empty. Entries pass the
// feed's description as fallback.
func atomText(n *xmltree.Node, fallback model.Media) model.Media {
	if m, ok := atomTyped(n.Child("content", nsAtom)); ok {
		return m
	}
	if desc := n.Child("group", nsMedia).Child("description", nsMedia); desc != nil {
		if c := desc.Content(); c != "" {
			mime := model.MIMEPlain
			if t, _ := desc.Attr("type"); t == "html" {
				mime = model.MIMEHTML
			}
			return model.Media{MIMEType: mime, Content: c}
		}
	}
	for _, name := range []string{"summary", "subtitle", "description"} {
		if m, ok := atomTyped(n.Child(name, nsAtom)); ok {
			return m
		}
	}
	return fallback
}

// atomTyped reads an Atom text construct: type absent or "text" is
// plain, anything else is HTML.
func atomTyped(n *xmltree.Node) (model.Media, bool) {
	c := n.Content()
	if c == "" {
		return model.Media{}, false
	}
	mime := model.MIMEHTML
	if t, ok := n.Attr("type"); !ok || t == "text" {
		mime = model.MIMEPlain
	}
	return model.Media{MIMEType: mime, Content: c}, true
}

func atomPeople(n *xmltree.Node, into *model.Authors) {
	for _, a := range n.Children("author", nsAtom) {
		into.Add(model.Author{
			Name:  a.ChildContent("name", nsAtom),
			Email: a.ChildContent("email", nsAtom),
		})
	}
}

func atomCategories(n *xmltree.Node, into *model.Categories) {
	for _, c := range n.Children("category", nsAtom) {
		term, _ := c.Attr("term")
		into.Add(model.Category{Name: term})
	}
}
