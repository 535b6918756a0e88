// Package opml imports and exports subscription lists.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element (folder or feed).
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// Subscription is a feed URL with the folder it was filed under.
type Subscription struct {
	Folder []string // e.g. ["Tech", "Go"]
	Title  string
	URL    string
}

// Parse reads an OPML document and returns its feeds in document order.
func Parse(r io.Reader) ([]Subscription, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var subs []Subscription
	var walk func(outlines []Outline, path []string)
	walk = func(outlines []Outline, path []string) {
		for _, o := range outlines {
			switch {
			case o.XMLURL != "":
				title := o.Title
				if title == "" {
					title = o.Text
				}
				subs = append(subs, Subscription{
					Folder: append([]string(nil), path...),
					Title:  title,
					URL:    strings.TrimSpace(o.XMLURL),
				})
			case len(o.Outlines) > 0:
				name := o.Text
				if name == "" {
					name = o.Title
				}
				walk(o.Outlines, append(path[:len(path):len(path)], name))
			}
		}
	}
	walk(doc.Body.Outlines, nil)
	return subs, nil
}

// Export writes subs as an OPML 2.0 document. Folders are nested and keep
// the order in which they first appear.
func Export(w io.Writer, title string, subs []Subscription, created time.Time) error {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: created.Format(time.RFC1123Z),
		},
	}

	root := &Outline{}
	for _, s := range subs {
		parent := root
		for _, name := range s.Folder {
			parent = folder(parent, name)
		}
		text := s.Title
		if text == "" {
			text = s.URL
		}
		parent.Outlines = append(parent.Outlines, Outline{
			Text:   text,
			Title:  s.Title,
			Type:   "rss",
			XMLURL: s.URL,
		})
	}
	doc.Body.Outlines = root.Outlines

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode opml: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(append(output, '\n')); err != nil {
		return err
	}
	return nil
}

// folder returns the child folder of parent named name, creating it.
func folder(parent *Outline, name string) *Outline {
	for i := range parent.Outlines {
		o := &parent.Outlines[i]
		if o.XMLURL == "" && o.Text == name {
			return o
		}
	}
	parent.Outlines = append(parent.Outlines, Outline{Text: name, Title: name})
	return &parent.Outlines[len(parent.Outlines)-1]
}
