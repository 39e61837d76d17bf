// Package vm is the template evaluation engine: it walks a compiled
// statement list against a data context, materializes output nodes, wires
// dynamic bindings to references, and produces a RenderResult that can
// re-render incrementally by validating tag snapshots.
package vm

import (
	"fmt"

	"github.com/bekzod/glimmer-vm/reference"
	"github.com/bekzod/glimmer-vm/template"
)

// ---------------------------------------------------------------------------
// Scope: indexed binding environment
// ---------------------------------------------------------------------------

// BoundBlock is an inline block together with the scope it closes over.
type BoundBlock struct {
	Block *template.InlineBlock
	Scope *Scope
}

// EvaluatedArgs is an argument set evaluated to references.
type EvaluatedArgs struct {
	Positional []reference.Reference
	Named      map[string]reference.Reference
}

// Tag combines the tags of every argument.
func (a *EvaluatedArgs) Tag() reference.Tag {
	tags := make([]reference.Tag, 0, len(a.Positional)+len(a.Named))
	for _, r := range a.Positional {
		tags = append(tags, r.Tag())
	}
	for _, r := range a.Named {
		tags = append(tags, r.Tag())
	}
	return reference.Combine(tags...)
}

// Scope maps compile-time symbols to runtime values. Slots are addressed by
// the integers the symbol table assigned; slot 0 is always self. A slot
// holds a reference, a bound block, or an evaluated partial argument set.
//
// Scopes clone on block entry: Child copies the slot array, so bindings made
// by a nested block never leak into the scope it was cloned from. The caller
// scope is a non-owning back-link used by partial and yield lookups.
type Scope struct {
	slots       []any
	callerScope *Scope
}

// NewRootScope creates the scope for one template invocation.
func NewRootScope(self reference.Reference, size int) *Scope {
	if size < 1 {
		size = 1
	}
	s := &Scope{slots: make([]any, size)}
	s.slots[template.SelfSymbol] = self
	return s
}

// Child clones the scope for a nested block, sharing the caller scope.
func (s *Scope) Child() *Scope {
	slots := make([]any, len(s.slots))
	copy(slots, s.slots)
	return &Scope{slots: slots, callerScope: s.callerScope}
}

func (s *Scope) slot(n int) any {
	if n < 0 || n >= len(s.slots) {
		panic(fmt.Sprintf("vm: symbol %d out of range (scope size %d)", n, len(s.slots)))
	}
	return s.slots[n]
}

// GetSelf returns the self reference.
func (s *Scope) GetSelf() reference.Reference {
	return s.GetSymbol(template.SelfSymbol)
}

// GetSymbol returns the reference bound at symbol n; unbound slots read as
// the undefined reference.
func (s *Scope) GetSymbol(n int) reference.Reference {
	switch v := s.slot(n).(type) {
	case nil:
		return reference.Undefined()
	case reference.Reference:
		return v
	default:
		panic(fmt.Sprintf("vm: symbol %d holds %T, not a reference", n, v))
	}
}

// GetBlock returns the block bound at symbol n, or nil.
func (s *Scope) GetBlock(n int) *BoundBlock {
	switch v := s.slot(n).(type) {
	case nil:
		return nil
	case *BoundBlock:
		return v
	default:
		panic(fmt.Sprintf("vm: symbol %d holds %T, not a block", n, v))
	}
}

// GetPartialArgs returns the argument set bound at symbol n, or nil.
func (s *Scope) GetPartialArgs(n int) *EvaluatedArgs {
	switch v := s.slot(n).(type) {
	case nil:
		return nil
	case *EvaluatedArgs:
		return v
	default:
		panic(fmt.Sprintf("vm: symbol %d holds %T, not partial args", n, v))
	}
}

// BindSymbol binds a reference at symbol n.
func (s *Scope) BindSymbol(n int, ref reference.Reference) {
	s.slot(n)
	s.slots[n] = ref
}

// BindBlock binds a block at symbol n.
func (s *Scope) BindBlock(n int, block *BoundBlock) {
	s.slot(n)
	s.slots[n] = block
}

// BindPartialArgs binds an argument set at symbol n.
func (s *Scope) BindPartialArgs(n int, args *EvaluatedArgs) {
	s.slot(n)
	s.slots[n] = args
}

// BindCallerScope records the invoking scope for cross-boundary lookups.
func (s *Scope) BindCallerScope(caller *Scope) {
	s.callerScope = caller
}

// CallerScope returns the invoking scope, or nil.
func (s *Scope) CallerScope() *Scope { return s.callerScope }
