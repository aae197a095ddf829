package xctrace

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Node is one element of an xctrace XML export. The export deduplicates
// repeated values: a node either carries its own attributes or a ref
// attribute pointing at an earlier node that declared an id.
type Node struct {
	XMLName  xml.Name
	ID       string     `xml:"id,attr"`
	Ref      string     `xml:"ref,attr"`
	Fmt      string     `xml:"fmt,attr"`
	Name     string     `xml:"name,attr"`
	Addr     string     `xml:"addr,attr"`
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*Node    `xml:",any"`
}

// ReadDocument parses a whole export document. No particular root shape is
// assumed; callers locate rows and identifier-bearing nodes themselves.
func ReadDocument(r io.Reader) (*Node, error) {
	var root Node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to decode export document: %w", err)
	}
	return &root, nil
}

// Tag returns the node's element name.
func (n *Node) Tag() string {
	return n.XMLName.Local
}

// Attr returns the value of an attribute not covered by the named fields.
func (n *Node) Attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Walk visits the node and every descendant in document order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// Find returns the first descendant with the given tag, in document order,
// or nil. The node itself is not considered.
func (n *Node) Find(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag() == tag {
			return c
		}
		if found := c.Find(tag); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns the node (if it matches) and all matching descendants in
// document order.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	n.Walk(func(c *Node) {
		if c.Tag() == tag {
			out = append(out, c)
		}
	})
	return out
}
