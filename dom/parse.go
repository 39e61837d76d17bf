package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ---------------------------------------------------------------------------
// HTML parsing (rehydration input path)
// ---------------------------------------------------------------------------

// ParseFragment parses serialized markup into nodes of this document,
// comments included. It is the entry point for rehydration: server output
// produced by WriteHTML round-trips through here before the engine walks it.
func ParseFragment(d *Document, markup string) ([]*Node, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	parsed, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	var out []*Node
	for _, p := range parsed {
		if n := convert(d, p); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func convert(d *Document, src *html.Node) *Node {
	switch src.Type {
	case html.TextNode:
		return d.CreateTextNode(src.Data)
	case html.CommentNode:
		return d.CreateComment(src.Data)
	case html.ElementNode:
		var el *Node
		if src.Namespace == "svg" {
			el = d.CreateElementNS(NamespaceSVG, src.Data)
		} else {
			el = d.CreateElement(src.Data)
		}
		for _, a := range src.Attr {
			ns := ""
			name := a.Key
			if a.Namespace == "xlink" {
				ns = NamespaceXLink
			}
			if el.Namespace == NamespaceSVG {
				name = NormalizeSVGAttr(name)
			}
			el.setAttrQuiet(ns, name, a.Val)
		}
		for c := src.FirstChild; c != nil; c = c.NextSibling {
			if child := convert(d, c); child != nil {
				el.AppendChild(child)
			}
		}
		return el
	default:
		return nil
	}
}
