// Package xmltree builds a small namespace-aware element tree on top of
// goxpp, just enough for the feed extractors to walk.
package xmltree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

// ErrEmpty is returned for a document without a root element.
var ErrEmpty = errors.New("document has no root element")

// Node is an element or, when Name is empty, a run of character data.
type Node struct {
	Space string // namespace URI, "" when unqualified
	Name  string
	Attrs []xml.Attr
	Text  string

	children []*Node
}

// Parse reads a whole document and returns its root element. Encodings
// other than UTF-8 are decoded from the XML declaration. Parsing is strict:
// mismatched end tags and undefined entities are errors.
func Parse(r io.Reader) (*Node, error) {
	p := xpp.NewXMLPullParser(r, true, charset.NewReaderLabel)

	var root *Node
	var stack []*Node
	for {
		event, err := p.Next()
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
		switch event {
		case xpp.StartTag:
			n := &Node{Space: p.Space, Name: p.Name, Attrs: append([]xml.Attr(nil), p.Attrs...)}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("xml: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xpp.EndTag:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xpp.Text:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, &Node{Text: p.Text})
			}
		case xpp.EndDocument:
			if root == nil {
				return nil, ErrEmpty
			}
			if len(stack) > 0 {
				return nil, fmt.Errorf("xml: unclosed element <%s>", stack[len(stack)-1].Name)
			}
			return root, nil
		}
	}
}

// IsElement reports whether n is an element rather than text.
func (n *Node) IsElement() bool {
	return n.Name != ""
}

// Is reports whether n is the element name in namespace space. An empty
// space matches only unqualified elements.
func (n *Node) Is(name, space string) bool {
	return n != nil && n.Name == name && n.Space == space
}

// Elements returns the child elements in document order.
func (n *Node) Elements() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		if c.IsElement() {
			out = append(out, c)
		}
	}
	return out
}

// Children returns the child elements matching name and space.
func (n *Node) Children(name, space string) []*Node {
	var out []*Node
	for _, c := range n.Elements() {
		if c.Is(name, space) {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first child element matching name and space.
func (n *Node) Child(name, space string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.Is(name, space) {
			return c
		}
	}
	return nil
}

// Content returns the concatenated character data of n and all its
// descendants, trimmed of surrounding whitespace.
func (n *Node) Content() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	n.collect(&sb)
	return strings.TrimSpace(sb.String())
}

func (n *Node) collect(sb *strings.Builder) {
	if !n.IsElement() {
		sb.WriteString(n.Text)
		return
	}
	for _, c := range n.children {
		c.collect(sb)
	}
}

// ChildContent is Content of the first matching child, "" when missing.
func (n *Node) ChildContent(name, space string) string {
	return n.Child(name, space).Content()
}

// Attr returns the value of an unqualified attribute.
func (n *Node) Attr(name string) (string, bool) {
	return n.NSAttr(name, "")
}

// NSAttr returns the value of the attribute name in namespace space.
func (n *Node) NSAttr(name, space string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Name.Local == name && a.Name.Space == space {
			return a.Value, true
		}
	}
	return "", false
}

// Lang returns the xml:lang attribute, "" when absent.
func (n *Node) Lang() string {
	v, _ := n.NSAttr("lang", "http://www.w3.org/XML/1998/namespace")
	if v == "" {
		v, _ = n.NSAttr("lang", "xml")
	}
	return v
}
