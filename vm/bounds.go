package vm

import "github.com/bekzod/glimmer-vm/dom"

// ---------------------------------------------------------------------------
// Bounds: a contiguous sibling range of rendered nodes
// ---------------------------------------------------------------------------

// Bounds identifies the nodes one block rendered: a contiguous run of
// siblings under one parent. A block always has at least one node; an empty
// block renders a placeholder so its position in the sibling list survives
// branch swaps.
type Bounds struct {
	parent *dom.Node
	first  *dom.Node
	last   *dom.Node
}

// Parent returns the node the range lives under.
func (b *Bounds) Parent() *dom.Node { return b.parent }

// First returns the first node of the range.
func (b *Bounds) First() *dom.Node { return b.first }

// Last returns the last node of the range.
func (b *Bounds) Last() *dom.Node { return b.last }

// nextSibling returns the node immediately after the range, or nil.
func (b *Bounds) nextSibling() *dom.Node {
	if b.last == nil {
		return nil
	}
	return b.last.NextSibling
}

// clear detaches every node in the range and returns the node that followed
// it, which is where replacement content belongs.
func (b *Bounds) clear() *dom.Node {
	next := b.nextSibling()
	for n := b.first; n != nil; {
		stop := n == b.last
		after := n.NextSibling
		b.parent.RemoveChild(n)
		if stop {
			break
		}
		n = after
	}
	return next
}

// moveBefore reinserts the range in front of ref (nil appends), preserving
// node identity.
func (b *Bounds) moveBefore(parent *dom.Node, ref *dom.Node) {
	nodes := b.nodes()
	for _, n := range nodes {
		parent.InsertBefore(n, ref)
	}
}

// nodes returns the range as a slice.
func (b *Bounds) nodes() []*dom.Node {
	var out []*dom.Node
	for n := b.first; n != nil; n = n.NextSibling {
		out = append(out, n)
		if n == b.last {
			break
		}
	}
	return out
}
