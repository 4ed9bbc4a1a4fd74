package models

import (
	"encoding/xml"
	"strings"
)

// Node is a generic XML element. Service responses are decoded into a Node tree
// because the payload nests lists of anonymous "item" elements that do not map
// cleanly onto fixed structs.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []Node     `xml:",any"`
}

// Name returns the local (namespace free) tag name
func (n Node) Name() string {
	return n.XMLName.Local
}

// Child returns the first direct child with the given local name
func (n Node) Child(name string) (Node, bool) {
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return Node{}, false
}

// Children returns every direct child with the given local name
func (n Node) Children(name string) []Node {
	var out []Node
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns the value of the attribute with the given local name
func (n Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Field reads a named scalar stored either as an attribute or as the text of a
// child element. Attributes win.
func (n Node) Field(name string) (string, bool) {
	if v, ok := n.Attr(name); ok {
		return strings.TrimSpace(v), true
	}
	if c, ok := n.Child(name); ok {
		return strings.TrimSpace(c.Text), true
	}
	return "", false
}
