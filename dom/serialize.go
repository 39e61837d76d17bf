package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ---------------------------------------------------------------------------
// HTML serialization
// ---------------------------------------------------------------------------

// voidElements never carry children and serialize without a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// WriteHTML serializes the node and its subtree as HTML.
func WriteHTML(w io.Writer, n *Node) error {
	var sb strings.Builder
	writeNode(&sb, n)
	_, err := io.WriteString(w, sb.String())
	return err
}

// OuterHTML returns the node and its subtree as HTML text.
func OuterHTML(n *Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

// InnerHTML returns the node's children as HTML text.
func InnerHTML(n *Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(&sb, c)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	switch n.Type {
	case TextNode:
		sb.WriteString(html.EscapeString(n.Data))
	case CommentNode:
		sb.WriteString("<!--")
		sb.WriteString(n.Data)
		sb.WriteString("-->")
	case ElementNode:
		sb.WriteByte('<')
		sb.WriteString(n.Tag)
		for _, a := range n.Attrs {
			sb.WriteByte(' ')
			if a.Namespace == NamespaceXLink {
				sb.WriteString("xlink:")
			}
			sb.WriteString(a.Name)
			sb.WriteString(`="`)
			sb.WriteString(html.EscapeString(a.Value))
			sb.WriteByte('"')
		}
		sb.WriteByte('>')
		if voidElements[n.Tag] && n.Namespace != NamespaceSVG {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(sb, c)
		}
		sb.WriteString("</")
		sb.WriteString(n.Tag)
		sb.WriteByte('>')
	}
}
