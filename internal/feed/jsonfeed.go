package feed

import (
	"io"

	jsonfeed "github.com/mmcdole/gofeed/json"

	"github.com/bryan-buckman/feedmail/internal/fault"
	"github.com/bryan-buckman/feedmail/internal/model"
)

// decodeJSON normalizes a JSON Feed document. content_html is HTML,
// content_text and summary are plain.
func decodeJSON(r io.Reader) (*Document, error) {
	parsed, err := (&jsonfeed.Parser{}).Parse(r)
	if err != nil {
		return nil, fault.Parse("invalid JSON feed", err)
	}

	f := &model.Feed{
		ID:    parsed.FeedURL,
		Link:  parsed.HomePageURL,
		Title: parsed.Title,
		Description: model.Media{
			MIMEType: model.MIMEPlain,
			Content:  parsed.Description,
		},
	}
	if parsed.Author != nil {
		f.Authors.Add(model.Author{Name: parsed.Author.Name})
	}

	doc := &Document{Format: "json", Feed: f}
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		e := model.NewEntry(f)
		e.ID = it.ID
		e.Link = it.URL
		if e.Link == "" {
			e.Link = it.ExternalURL
		}
		e.Date = it.DatePublished
		if e.Date == "" {
			e.Date = it.DateModified
		}
		e.Subject = it.Title
		switch {
		case it.ContentHTML != "":
			e.Text = model.Media{MIMEType: model.MIMEHTML, Content: it.ContentHTML}
		case it.ContentText != "":
			e.Text = model.Media{MIMEType: model.MIMEPlain, Content: it.ContentText}
		default:
			e.Text = model.Media{MIMEType: model.MIMEPlain, Content: it.Summary}
		}
		if it.Author != nil {
			e.Authors.Add(model.Author{Name: it.Author.Name})
		}
		for _, tag := range it.Tags {
			e.Categories.Add(model.Category{Name: tag})
		}
		doc.Entries = append(doc.Entries, e)
	}
	return doc, nil
}
