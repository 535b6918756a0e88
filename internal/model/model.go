// Package model defines shared data structures.
package model

// MIME types a Media payload can carry.
const (
	MIMEPlain = "text/plain; charset=utf-8"
	MIMEHTML  = "text/html; charset=utf-8"
)

// Capacities of the bounded multi-valued fields.
const (
	MaxAuthors    = 8
	MaxCategories = 16
)

// Media is a textual payload with its declared type.
type Media struct {
	MIMEType string
	Content  string // already unescaped; "" when absent
}

// HasContent reports whether the payload carries any text.
func (m Media) HasContent() bool {
	return m.Content != ""
}

// Author is a person credited on a feed or entry.
type Author struct {
	Name  string
	Email string
}

// Category is a label attached to a feed or entry.
type Category struct {
	Name string
}

// Feed represents the top-level channel being polled.
// It lives only for one extraction pass.
type Feed struct {
	ID          string
	Link        string
	Title       string
	Language    string
	Authors     Authors
	Categories  Categories
	Description Media
}

// Entry represents a single item/post from a feed.
type Entry struct {
	ID         string
	Link       string
	Date       string // as supplied by the feed, parsed on use
	Language   string // copied from the feed when the entry has none
	Subject    string
	Authors    Authors
	Categories Categories
	Text       Media

	feed *Feed
}

// NewEntry returns an entry bound to its feed. The entry only reads
// through the reference and must not outlive the extraction pass.
func NewEntry(feed *Feed) *Entry {
	e := &Entry{feed: feed}
	if feed != nil {
		e.Language = feed.Language
	}
	return e
}

// Feed returns the owning feed, or nil for a detached entry.
func (e *Entry) Feed() *Feed {
	return e.feed
}

// FeedLink is the owning feed's link, "" when unknown.
func (e *Entry) FeedLink() string {
	if e.feed == nil {
		return ""
	}
	return e.feed.Link
}
