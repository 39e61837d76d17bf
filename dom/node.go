// Package dom provides the in-memory document the rendering engine writes
// to, together with the attribute/property normalization layer that decides
// how a given attribute write reaches a node. The node shape (first-child /
// next-sibling links) mirrors golang.org/x/net/html so serialized markup can
// be parsed straight back into it for rehydration.
package dom

import "fmt"

// NodeType discriminates the node variants.
type NodeType int

const (
	ElementNode NodeType = iota + 1
	TextNode
	CommentNode
)

// Namespaces the engine understands.
const (
	NamespaceSVG   = "http://www.w3.org/2000/svg"
	NamespaceXLink = "http://www.w3.org/1999/xlink"
)

// Attr is one attribute of an element. Order is preserved.
type Attr struct {
	Name      string
	Namespace string
	Value     string
}

// Node is a single node of the output tree.
type Node struct {
	Type NodeType

	// Elements.
	Tag       string
	Namespace string
	Attrs     []Attr

	// Text and comment content.
	Data string

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node

	doc   *Document
	props map[string]any
}

// Document creates nodes and tracks every mutation applied through it. The
// write counter exists so callers can assert that a no-op rerender touched
// nothing.
type Document struct {
	Sanitizer *Sanitizer
	writes    int
}

// NewDocument returns a document with the default sanitizer.
func NewDocument() *Document {
	return &Document{Sanitizer: NewSanitizer()}
}

// Writes returns the number of tree mutations since the last reset.
func (d *Document) Writes() int { return d.writes }

// ResetWrites zeroes the mutation counter.
func (d *Document) ResetWrites() { d.writes = 0 }

// CreateElement creates an element in the default (HTML) namespace.
func (d *Document) CreateElement(tag string) *Node {
	return &Node{Type: ElementNode, Tag: tag, doc: d}
}

// CreateElementNS creates an element in an explicit namespace.
func (d *Document) CreateElementNS(namespace, tag string) *Node {
	return &Node{Type: ElementNode, Tag: tag, Namespace: namespace, doc: d}
}

// CreateTextNode creates a text node.
func (d *Document) CreateTextNode(data string) *Node {
	return &Node{Type: TextNode, Data: data, doc: d}
}

// CreateComment creates a comment node.
func (d *Document) CreateComment(data string) *Node {
	return &Node{Type: CommentNode, Data: data, doc: d}
}

// ---------------------------------------------------------------------------
// Tree mutation
// ---------------------------------------------------------------------------

func (n *Node) countWrite() {
	if n.doc != nil {
		n.doc.writes++
	}
}

// AppendChild adds child as the last child of n.
func (n *Node) AppendChild(child *Node) {
	n.InsertBefore(child, nil)
}

// InsertBefore inserts child immediately before ref, which must be a child
// of n; a nil ref appends.
func (n *Node) InsertBefore(child, ref *Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	if ref != nil && ref.Parent != n {
		panic("dom: InsertBefore reference node is not a child")
	}
	n.countWrite()
	child.Parent = n
	if ref == nil {
		child.PrevSibling = n.LastChild
		if n.LastChild != nil {
			n.LastChild.NextSibling = child
		} else {
			n.FirstChild = child
		}
		n.LastChild = child
		return
	}
	child.NextSibling = ref
	child.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = child
	} else {
		n.FirstChild = child
	}
	ref.PrevSibling = child
}

// RemoveChild detaches child from n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("dom: RemoveChild of a non-child")
	}
	n.countWrite()
	if child.PrevSibling != nil {
		child.PrevSibling.NextSibling = child.NextSibling
	} else {
		n.FirstChild = child.NextSibling
	}
	if child.NextSibling != nil {
		child.NextSibling.PrevSibling = child.PrevSibling
	} else {
		n.LastChild = child.PrevSibling
	}
	child.Parent = nil
	child.PrevSibling = nil
	child.NextSibling = nil
}

// Children returns the child nodes as a slice.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// SetText replaces a text or comment node's content.
func (n *Node) SetText(data string) {
	if n.Type != TextNode && n.Type != CommentNode {
		panic("dom: SetText on a non-character node")
	}
	n.countWrite()
	n.Data = data
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

// GetAttribute returns the attribute's value and whether it is present.
func (n *Node) GetAttribute(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttribute sets an attribute in the default namespace.
func (n *Node) SetAttribute(name, value string) {
	n.SetAttributeNS("", name, value)
}

// SetAttributeNS sets a namespaced attribute, preserving attribute order
// for existing names.
func (n *Node) SetAttributeNS(namespace, name, value string) {
	n.countWrite()
	n.setAttrQuiet(namespace, name, value)
}

func (n *Node) setAttrQuiet(namespace, name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name && n.Attrs[i].Namespace == namespace {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Namespace: namespace, Value: value})
}

// RemoveAttribute removes an attribute if present.
func (n *Node) RemoveAttribute(name string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.countWrite()
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

// Property returns the element's property value, or nil.
func (n *Node) Property(name string) any {
	return n.props[name]
}

// SetProperty sets a property. Reflected properties (className, htmlFor,
// boolean flags and the like) are mirrored into the attribute list so
// serialization sees them; live input state (value, checked) is not
// reflected, matching host-platform behavior.
func (n *Node) SetProperty(name string, value any) {
	n.countWrite()
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value

	attr, ok := reflectedAttr(name)
	if !ok {
		return
	}
	switch v := value.(type) {
	case nil:
		n.removeAttrQuiet(attr)
	case bool:
		if v {
			n.setAttrQuiet("", attr, "")
		} else {
			n.removeAttrQuiet(attr)
		}
	case string:
		if v == "" && isBooleanProperty(name) {
			n.removeAttrQuiet(attr)
		} else {
			n.setAttrQuiet("", attr, v)
		}
	default:
		n.setAttrQuiet("", attr, fmt.Sprint(v))
	}
}

func (n *Node) removeAttrQuiet(name string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			return
		}
	}
}

// InputValue returns the live value of an input or textarea, the way a
// browser exposes it through the value property.
func (n *Node) InputValue() string {
	if v, ok := n.props["value"].(string); ok {
		return v
	}
	// Before any property write the live value mirrors the value attribute
	// (textarea content is out of scope for this in-memory document).
	v, _ := n.GetAttribute("value")
	return v
}
