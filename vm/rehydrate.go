package vm

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/bekzod/glimmer-vm/dom"
)

var rehydrateLog = commonlog.GetLogger("glimmer.rehydrate")

// ---------------------------------------------------------------------------
// Rehydrate builder
// ---------------------------------------------------------------------------

// rehydrateBuilder attaches a render pass to markup that already exists,
// claiming existing nodes instead of creating them. The walk is guided by
// the marker comments the serialize builder emitted; markers are consumed
// (removed) as they are matched, so a fully matched rehydration leaves a
// tree identical to a from-scratch client render.
//
// On any shape mismatch the builder discards the remainder of the
// mismatched region and builds fresh nodes in its place. Mismatches are
// never fatal.
type rehydrateCursor struct {
	parent    *dom.Node
	candidate *dom.Node
}

type rehydrateTracker struct {
	blockTracker
	sawMarker bool
}

type rehydrateBuilder struct {
	doc     *dom.Document
	cursors []rehydrateCursor
	blocks  []*rehydrateTracker
	pending *dom.Node
	claimed bool
	depth   int
	strict  bool
}

func newRehydrateBuilder(doc *dom.Document, parent, next *dom.Node, strict bool) *rehydrateBuilder {
	candidate := parent.FirstChild
	if next != nil {
		candidate = next
	}
	return &rehydrateBuilder{
		doc:     doc,
		cursors: []rehydrateCursor{{parent: parent, candidate: candidate}},
		strict:  strict,
	}
}

func (b *rehydrateBuilder) document() *dom.Document { return b.doc }

func (b *rehydrateBuilder) top() *rehydrateCursor {
	return &b.cursors[len(b.cursors)-1]
}

func (b *rehydrateBuilder) parent() *dom.Node { return b.top().parent }

func (b *rehydrateBuilder) constructing() *dom.Node {
	if b.pending == nil {
		panic("vm: no element under construction")
	}
	return b.pending
}

func (b *rehydrateBuilder) logMismatch(format string, args ...any) {
	if b.strict {
		rehydrateLog.Warningf(format, args...)
	} else {
		rehydrateLog.Debugf(format, args...)
	}
}

// remove detaches a candidate node, advancing the cursor past it.
func (b *rehydrateBuilder) removeCandidate() {
	cur := b.top()
	n := cur.candidate
	cur.candidate = n.NextSibling
	cur.parent.RemoveChild(n)
}

// mismatch discards candidates up to the close marker of the innermost open
// block (or to the end of the parent), after which fresh nodes are built in
// place of the discarded region.
func (b *rehydrateBuilder) mismatch(reason string) {
	b.logMismatch("rehydration mismatch: %s", reason)
	closeData := ""
	if b.depth > 0 {
		closeData = fmt.Sprintf(markerCloseBlock, b.depth-1)
	}
	cur := b.top()
	for cur.candidate != nil {
		n := cur.candidate
		if closeData != "" && n.Type == dom.CommentNode && n.Data == closeData {
			return
		}
		b.removeCandidate()
	}
}

// insert places a fresh node before the current candidate.
func (b *rehydrateBuilder) insert(n *dom.Node) {
	cur := b.top()
	cur.parent.InsertBefore(n, cur.candidate)
	b.didAppend(n)
}

func (b *rehydrateBuilder) didAppend(n *dom.Node) {
	for _, t := range b.blocks {
		if t.parent == n.Parent {
			if t.first == nil {
				t.first = n
			}
			t.last = n
		}
	}
}

// ---------------------------------------------------------------------------
// Elements and character data
// ---------------------------------------------------------------------------

func (b *rehydrateBuilder) openElement(tag, namespace string) *dom.Node {
	if b.pending != nil {
		panic("vm: openElement before previous element was flushed")
	}
	c := b.top().candidate
	if c != nil && c.Type == dom.ElementNode && c.Tag == tag && c.Namespace == namespace {
		b.pending = c
		b.claimed = true
		return c
	}
	if c != nil {
		b.mismatch(fmt.Sprintf("expected <%s>, found %s", tag, describeNode(c)))
	}
	b.claimed = false
	if namespace != "" {
		b.pending = b.doc.CreateElementNS(namespace, tag)
	} else {
		b.pending = b.doc.CreateElement(tag)
	}
	return b.pending
}

func (b *rehydrateBuilder) flushElement() {
	el := b.constructing()
	claimed := b.claimed
	b.pending = nil
	b.claimed = false
	if claimed {
		cur := b.top()
		cur.candidate = el.NextSibling
		b.didAppend(el)
		b.cursors = append(b.cursors, rehydrateCursor{parent: el, candidate: el.FirstChild})
		return
	}
	b.insert(el)
	b.cursors = append(b.cursors, rehydrateCursor{parent: el})
}

func (b *rehydrateBuilder) closeElement() {
	if len(b.cursors) < 2 {
		panic("vm: closeElement without a matching open")
	}
	// Extra server-rendered children the template did not produce.
	for b.top().candidate != nil {
		b.logMismatch("rehydration mismatch: extra node %s", describeNode(b.top().candidate))
		b.removeCandidate()
	}
	b.cursors = b.cursors[:len(b.cursors)-1]
}

func (b *rehydrateBuilder) appendText(data string) *dom.Node {
	c := b.top().candidate
	if c != nil && c.Type == dom.TextNode {
		if c.Data != data {
			c.SetText(data)
		}
		b.top().candidate = c.NextSibling
		b.didAppend(c)
		return c
	}
	if c != nil {
		b.mismatch(fmt.Sprintf("expected text %q, found %s", data, describeNode(c)))
	}
	n := b.doc.CreateTextNode(data)
	b.insert(n)
	return n
}

func (b *rehydrateBuilder) appendComment(data string) *dom.Node {
	c := b.top().candidate
	if c != nil && c.Type == dom.CommentNode {
		if c.Data != data {
			c.SetText(data)
		}
		b.top().candidate = c.NextSibling
		b.didAppend(c)
		return c
	}
	if c != nil {
		b.mismatch(fmt.Sprintf("expected comment, found %s", describeNode(c)))
	}
	n := b.doc.CreateComment(data)
	b.insert(n)
	return n
}

func (b *rehydrateBuilder) appendNode(n *dom.Node) {
	// Trusting content is always rebuilt client-side.
	if b.top().candidate != nil {
		b.mismatch("trusting content region")
	}
	b.insert(n)
}

// ---------------------------------------------------------------------------
// Blocks and markers
// ---------------------------------------------------------------------------

func (b *rehydrateBuilder) openBlock() {
	t := &rehydrateTracker{blockTracker: blockTracker{parent: b.parent()}}
	c := b.top().candidate
	want := fmt.Sprintf(markerOpenBlock, b.depth)
	if c != nil && c.Type == dom.CommentNode && c.Data == want {
		b.removeCandidate()
		t.sawMarker = true
		b.depth++
	} else if c != nil {
		b.logMismatch("rehydration mismatch: expected open marker %q, found %s", want, describeNode(c))
	}
	b.blocks = append(b.blocks, t)
}

func (b *rehydrateBuilder) closeBlock() *Bounds {
	t := b.blocks[len(b.blocks)-1]

	if t.sawMarker {
		// An empty serialized block carries the empty marker in place of
		// content; it becomes the client-side placeholder text node.
		c := b.top().candidate
		if c != nil && c.Type == dom.CommentNode && c.Data == markerEmpty {
			b.removeCandidate()
		}
		want := fmt.Sprintf(markerCloseBlock, b.depth-1)
		for b.top().candidate != nil {
			c := b.top().candidate
			if c.Type == dom.CommentNode && c.Data == want {
				break
			}
			b.logMismatch("rehydration mismatch: unexpected node %s before close marker", describeNode(c))
			b.removeCandidate()
		}
		if b.top().candidate != nil {
			b.removeCandidate()
		}
		b.depth--
	}

	if t.first == nil {
		// Placeholder keeps the empty block's position alive.
		b.insert(b.doc.CreateTextNode(""))
	}
	b.blocks = b.blocks[:len(b.blocks)-1]
	return &Bounds{parent: t.parent, first: t.first, last: t.last}
}

func (b *rehydrateBuilder) appendSeparator() {
	c := b.top().candidate
	if c != nil && c.Type == dom.CommentNode && c.Data == markerSep {
		b.removeCandidate()
	}
}

func describeNode(n *dom.Node) string {
	switch n.Type {
	case dom.ElementNode:
		return "<" + n.Tag + ">"
	case dom.TextNode:
		return fmt.Sprintf("text %q", n.Data)
	case dom.CommentNode:
		return fmt.Sprintf("comment %q", n.Data)
	default:
		return "unknown node"
	}
}
