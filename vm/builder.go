package vm

import (
	"fmt"

	"github.com/bekzod/glimmer-vm/dom"
)

// Marker comments bracketing dynamic regions in serialized output. Depth is
// a zero-based nesting counter incremented on open and decremented on close.
const (
	markerOpenBlock  = "%%+block:%d%%"
	markerCloseBlock = "%%-block:%d%%"
	markerSep        = "%sep%"
	markerEmpty      = "%empty%"
)

// treeBuilder is the interface the VM constructs output through. The client
// builder creates nodes directly, the serialize builder additionally emits
// marker comments, and the rehydrate builder claims existing nodes instead
// of creating them.
type treeBuilder interface {
	document() *dom.Document
	parent() *dom.Node
	constructing() *dom.Node

	openElement(tag, namespace string) *dom.Node
	flushElement()
	closeElement()
	appendText(data string) *dom.Node
	appendComment(data string) *dom.Node
	appendNode(n *dom.Node)

	openBlock()
	closeBlock() *Bounds
	appendSeparator()
}

// ---------------------------------------------------------------------------
// Client builder
// ---------------------------------------------------------------------------

type cursor struct {
	parent *dom.Node
	next   *dom.Node // insertion happens before this node; nil appends
}

type blockTracker struct {
	parent *dom.Node
	first  *dom.Node
	last   *dom.Node
}

// clientBuilder appends fresh nodes at a cursor.
type clientBuilder struct {
	doc     *dom.Document
	cursors []cursor
	blocks  []*blockTracker
	pending *dom.Node // element opened but not yet flushed
}

func newClientBuilder(doc *dom.Document, parent, next *dom.Node) *clientBuilder {
	return &clientBuilder{doc: doc, cursors: []cursor{{parent: parent, next: next}}}
}

func (b *clientBuilder) document() *dom.Document { return b.doc }

func (b *clientBuilder) parent() *dom.Node {
	return b.cursors[len(b.cursors)-1].parent
}

func (b *clientBuilder) constructing() *dom.Node {
	if b.pending == nil {
		panic("vm: no element under construction")
	}
	return b.pending
}

func (b *clientBuilder) insert(n *dom.Node) {
	cur := b.cursors[len(b.cursors)-1]
	cur.parent.InsertBefore(n, cur.next)
	b.didAppend(n)
}

func (b *clientBuilder) didAppend(n *dom.Node) {
	for _, t := range b.blocks {
		if t.parent == n.Parent {
			if t.first == nil {
				t.first = n
			}
			t.last = n
		}
	}
}

func (b *clientBuilder) openElement(tag, namespace string) *dom.Node {
	if b.pending != nil {
		panic("vm: openElement before previous element was flushed")
	}
	if namespace != "" {
		b.pending = b.doc.CreateElementNS(namespace, tag)
	} else {
		b.pending = b.doc.CreateElement(tag)
	}
	return b.pending
}

func (b *clientBuilder) flushElement() {
	el := b.constructing()
	b.pending = nil
	b.insert(el)
	b.cursors = append(b.cursors, cursor{parent: el})
}

func (b *clientBuilder) closeElement() {
	if len(b.cursors) < 2 {
		panic("vm: closeElement without a matching open")
	}
	b.cursors = b.cursors[:len(b.cursors)-1]
}

func (b *clientBuilder) appendText(data string) *dom.Node {
	n := b.doc.CreateTextNode(data)
	b.insert(n)
	return n
}

func (b *clientBuilder) appendComment(data string) *dom.Node {
	n := b.doc.CreateComment(data)
	b.insert(n)
	return n
}

func (b *clientBuilder) appendNode(n *dom.Node) {
	b.insert(n)
}

func (b *clientBuilder) openBlock() {
	b.blocks = append(b.blocks, &blockTracker{parent: b.parent()})
}

func (b *clientBuilder) closeBlock() *Bounds {
	t := b.blocks[len(b.blocks)-1]
	if t.first == nil {
		// Keep the block's position in the sibling list alive.
		b.appendText("")
	}
	b.blocks = b.blocks[:len(b.blocks)-1]
	return &Bounds{parent: t.parent, first: t.first, last: t.last}
}

func (b *clientBuilder) appendSeparator() {}

// ---------------------------------------------------------------------------
// Serialize builder
// ---------------------------------------------------------------------------

// serializeBuilder is the client builder plus literal marker comments, so a
// later rehydration pass can walk the output without guessing at structure.
type serializeBuilder struct {
	clientBuilder
	depth int
}

func newSerializeBuilder(doc *dom.Document, parent, next *dom.Node) *serializeBuilder {
	return &serializeBuilder{clientBuilder: *newClientBuilder(doc, parent, next)}
}

func (b *serializeBuilder) openBlock() {
	b.blocks = append(b.blocks, &blockTracker{parent: b.parent()})
	b.appendComment(fmt.Sprintf(markerOpenBlock, b.depth))
	b.depth++
}

func (b *serializeBuilder) closeBlock() *Bounds {
	t := b.blocks[len(b.blocks)-1]
	if t.first == nil || onlyOpenMarker(t) {
		b.appendComment(markerEmpty)
	}
	b.depth--
	b.appendComment(fmt.Sprintf(markerCloseBlock, b.depth))
	b.blocks = b.blocks[:len(b.blocks)-1]
	return &Bounds{parent: t.parent, first: t.first, last: t.last}
}

func (b *serializeBuilder) appendSeparator() {
	b.appendComment(markerSep)
}

// onlyOpenMarker reports whether the tracker has seen nothing beyond its own
// open marker.
func onlyOpenMarker(t *blockTracker) bool {
	return t.first == t.last && t.first != nil && t.first.Type == dom.CommentNode
}
