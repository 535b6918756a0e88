// Package feed reduces Atom, RSS 2.0, RDF/RSS 1.0 and JSON Feed documents
// to the canonical model.
//
// XML documents are offered to each Extractor in a fixed order; the first
// one that recognizes the root element (tag and namespace) walks it. An
// extractor that does not recognize the root has no side effects.
package feed

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mmcdole/gofeed"

	"github.com/bryan-buckman/feedmail/internal/fault"
	"github.com/bryan-buckman/feedmail/internal/model"
	"github.com/bryan-buckman/feedmail/internal/xmltree"
)

// Namespaces used by the extractors.
const (
	nsAtom    = "http://www.w3.org/2005/Atom"
	nsMedia   = "http://search.yahoo.com/mrss/"
	nsContent = "http://purl.org/rss/1.0/modules/content/"
	nsDC      = "http://purl.org/dc/elements/1.1/"
	nsRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsRSS10   = "http://purl.org/rss/1.0/"
)

// ErrUnrecognized is returned when no extractor accepts the document.
var ErrUnrecognized = errors.New("unrecognized feed format")

// Document is the result of one extraction pass.
type Document struct {
	Format  string
	Feed    *model.Feed
	Entries []*model.Entry
}

// Extractor recognizes one XML vocabulary.
type Extractor interface {
	Format() string
	// Extract returns ok=false, and touches nothing, when root is not
	// this extractor's vocabulary.
	Extract(root *xmltree.Node) (doc *Document, ok bool)
}

// Dispatcher tries extractors in order.
type Dispatcher struct {
	extractors []Extractor
}

// NewDispatcher returns a dispatcher trying Atom, RSS and RDF in that order.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{extractors: []Extractor{Atom{}, RSS{}, RDF{}}}
}

// Dispatch hands root to the first extractor that recognizes it.
func (d *Dispatcher) Dispatch(root *xmltree.Node) (*Document, error) {
	for _, x := range d.extractors {
		if doc, ok := x.Extract(root); ok {
			doc.Format = x.Format()
			return doc, nil
		}
	}
	return nil, fault.Parse("", fmt.Errorf("%w: root element %q (namespace %q)", ErrUnrecognized, root.Name, root.Space))
}

// Decode reads a whole payload and extracts it. JSON Feed payloads go to
// the JSON extractor, everything else is parsed as XML and dispatched.
func (d *Dispatcher) Decode(r io.Reader) (*Document, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fault.Transport("read feed", err)
	}
	if gofeed.DetectFeedType(bytes.NewReader(body)) == gofeed.FeedTypeJSON {
		return decodeJSON(bytes.NewReader(body))
	}
	root, err := xmltree.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fault.Parse("invalid XML", err)
	}
	return d.Dispatch(root)
}
