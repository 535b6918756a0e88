package mail

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/bryan-buckman/feedmail/internal/fingerprint"
	"github.com/bryan-buckman/feedmail/internal/model"
)

// Options shape the messages composed for one feed.
type Options struct {
	// From replaces the feed title as the sender's display name.
	From string
	// RootMessages threads entries under a synthetic per-feed message.
	RootMessages bool
	// Location renders Date and Received; time.Local when nil.
	Location *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Domain derives the right-hand side of Message-IDs and the sender
// address from a feed link.
func Domain(link string) string {
	if link == "" {
		return "localhost"
	}
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "localhost"
	}
	return u.Hostname()
}

// ComposeEntry writes the message for e. A zero date omits the Date header.
func ComposeEntry(w io.Writer, e *model.Entry, date, received time.Time, opts Options) error {
	var buf bytes.Buffer
	h := &headerWriter{w: &buf}
	f := e.Feed()
	domain := Domain(e.FeedLink())

	h.Write("Received: feedmail; %s", received.In(opts.location()).Format(time.RFC1123Z))
	h.Write("Message-ID: <%w@%s>", fingerprint.Identity(e), domain)
	if opts.RootMessages && f != nil {
		h.Write("In-Reply-To: <%w@%s>", fingerprint.Feed(f), domain)
	}
	h.Write("Content-Language: %t", e.Language)
	h.Write("Content-Transfer-Encoding: binary")
	if !date.IsZero() {
		h.Write("Date: %s", date.In(opts.location()).Format(time.RFC1123Z))
	}
	writeFrom(h, f, domain, opts)
	h.Write("Subject: %t", e.Subject)

	var feedCategories model.Categories
	var feedAuthors model.Authors
	if f != nil {
		feedCategories, feedAuthors = f.Categories, f.Authors
	}
	for _, c := range feedCategories.All() {
		h.Write("X-Category: %t", c.Name)
	}
	for _, c := range e.Categories.All() {
		if !feedCategories.Contains(c.Name) {
			h.Write("X-Category: %t", c.Name)
		}
	}
	for _, a := range feedAuthors.All() {
		writeAuthor(h, a)
	}
	for _, a := range e.Authors.All() {
		if !feedAuthors.Contains(a.Name) {
			writeAuthor(h, a)
		}
	}
	h.Write("Link: %t", e.Link)
	writeBody(h, &buf, e.Text)

	if h.err != nil {
		return h.err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ComposeRoot writes the synthetic message entries of f reply to.
func ComposeRoot(w io.Writer, f *model.Feed, opts Options) error {
	var buf bytes.Buffer
	h := &headerWriter{w: &buf}
	domain := Domain(f.Link)

	h.Write("Message-ID: <%w@%s>", fingerprint.Feed(f), domain)
	writeFrom(h, f, domain, opts)
	h.Write("Subject: %t", f.Title)
	h.Write("Link: %t", f.Link)
	writeBody(h, &buf, f.Description)

	if h.err != nil {
		return h.err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeFrom(h *headerWriter, f *model.Feed, domain string, opts Options) {
	phrase := opts.From
	if phrase == "" && f != nil {
		phrase = f.Title
	}
	if phrase == "" {
		h.Write("From: feed@%s", domain)
		return
	}
	h.Write("From: %w <feed@%s>", phrase, domain)
}

func writeAuthor(h *headerWriter, a model.Author) {
	if a.Email != "" {
		h.Write("Author: %t <%t>", a.Name, a.Email)
		return
	}
	h.Write("Author: %t", a.Name)
}

func writeBody(h *headerWriter, buf *bytes.Buffer, m model.Media) {
	if !m.HasContent() || h.err != nil {
		return
	}
	mime := m.MIMEType
	if mime == "" {
		mime = model.MIMEPlain
	}
	h.Write("Content-Type: %s", mime)
	fmt.Fprintf(buf, "\n%s", m.Content)
	if m.Content[len(m.Content)-1] != '\n' {
		buf.WriteByte('\n')
	}
}
