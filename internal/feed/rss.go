package feed

import (
	"strings"

	"github.com/bryan-buckman/feedmail/internal/model"
	"github.com/bryan-buckman/feedmail/internal/xmltree"
)

// RSS extracts RSS 0.9x/2.0 documents. Only the first channel is read.
type RSS struct{}

// Format implements Extractor.
func (RSS) Format() string { return "rss" }

// Extract implements Extractor.
func (RSS) Extract(root *xmltree.Node) (*Document, bool) {
	if !root.Is("rss", "") {
		return nil, false
	}

	doc := &Document{}
	ch := root.Child("channel", "")
	if ch == nil {
		return doc, true
	}

	f := &model.Feed{
		Link:     ch.ChildContent("link", ""),
		Title:    ch.ChildContent("title", ""),
		Language: ch.ChildContent("language", ""),
		Description: model.Media{
			MIMEType: model.MIMEHTML,
			Content:  ch.ChildContent("description", ""),
		},
	}
	if editor := ch.ChildContent("managingEditor", ""); editor != "" {
		f.Authors.Add(parseRSSAuthor(editor))
	}
	for _, c := range ch.Children("category", "") {
		f.Categories.Add(model.Category{Name: c.Content()})
	}
	doc.Feed = f

	for _, n := range ch.Children("item", "") {
		e := model.NewEntry(f)
		e.ID = n.ChildContent("guid", "")
		e.Link = resolveLink(n, "")
		e.Date = n.ChildContent("pubDate", "")
		if e.Date == "" {
			e.Date = n.ChildContent("date", nsDC)
		}
		if lang := n.ChildContent("language", nsDC); lang != "" {
			e.Language = lang
		}
		e.Subject = n.ChildContent("title", "")
		e.Text = rssText(n, "")
		if a := n.ChildContent("author", ""); a != "" {
			e.Authors.Add(parseRSSAuthor(a))
		}
		for _, c := range n.Children("creator", nsDC) {
			e.Authors.Add(model.Author{Name: c.Content()})
		}
		for _, c := range n.Children("category", "") {
			e.Categories.Add(model.Category{Name: c.Content()})
		}
		doc.Entries = append(doc.Entries, e)
	}
	return doc, true
}

// resolveLink picks, in order: a guid marked as permalink, the link
// element, a guid that looks like an absolute http(s) URL. space is the
// namespace of link for the vocabulary being read.
func resolveLink(item *xmltree.Node, space string) string {
	guid := item.Child("guid", "")
	id := guid.Content()
	if guid != nil {
		if p, _ := guid.Attr("isPermaLink"); p == "true" && id != "" {
			return id
		}
	}
	if link := item.ChildContent("link", space); link != "" {
		return link
	}
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	return ""
}

// rssText prefers description, then content:encoded. Both are HTML.
func rssText(item *xmltree.Node, space string) model.Media {
	c := item.ChildContent("description", space)
	if c == "" {
		c = item.ChildContent("encoded", nsContent)
	}
	return model.Media{MIMEType: model.MIMEHTML, Content: c}
}

// parseRSSAuthor splits the customary "email (Name)" form.
func parseRSSAuthor(s string) model.Author {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open > 0 && strings.HasSuffix(s, ")") {
		email := strings.TrimSpace(s[:open])
		name := strings.TrimSpace(s[open+1 : len(s)-1])
		if strings.Contains(email, "@") && name != "" {
			return model.Author{Name: name, Email: email}
		}
	}
	return model.Author{Name: s}
}
