package vm

import (
	"github.com/bekzod/glimmer-vm/dom"
	"github.com/bekzod/glimmer-vm/reference"
	"github.com/bekzod/glimmer-vm/template"
)

// ---------------------------------------------------------------------------
// Updating opcodes
// ---------------------------------------------------------------------------

// UpdatingOpcode is one retained unit of update work. The append pass emits
// an opcode for every dynamic binding it renders; Rerender walks the list.
// Update must be a no-op when the underlying state is unchanged.
type UpdatingOpcode interface {
	Update(env *Environment)
	Destroy(env *Environment)
}

func updateOpcodes(env *Environment, ops []UpdatingOpcode) {
	for _, op := range ops {
		op.Update(env)
	}
}

func destroyOpcodes(env *Environment, ops []UpdatingOpcode) {
	for _, op := range ops {
		op.Destroy(env)
	}
}

// textOpcode keeps a dynamic text node in sync with its reference.
type textOpcode struct {
	node     *dom.Node
	ref      reference.Reference
	snapshot reference.Revision
	last     string
}

func (op *textOpcode) Update(env *Environment) {
	if reference.Validate(op.ref.Tag(), op.snapshot) {
		return
	}
	op.snapshot = op.ref.Tag().Value()
	text := contentString(op.ref.Value())
	if text == op.last {
		return
	}
	op.last = text
	op.node.SetText(text)
}

func (op *textOpcode) Destroy(env *Environment) {}

// attrOpcode keeps one attribute binding in sync through its strategy.
type attrOpcode struct {
	element  *dom.Node
	strategy dom.Strategy
	ref      reference.Reference
	snapshot reference.Revision
}

func (op *attrOpcode) Update(env *Environment) {
	if reference.Validate(op.ref.Tag(), op.snapshot) {
		return
	}
	op.snapshot = op.ref.Tag().Value()
	op.strategy.Update(op.element, op.ref.Value())
}

func (op *attrOpcode) Destroy(env *Environment) {}

// modifierOpcode schedules a modifier update when its arguments change.
type modifierOpcode struct {
	modifier Modifier
	element  *dom.Node
	args     *EvaluatedArgs
	snapshot reference.Revision
}

func (op *modifierOpcode) Update(env *Environment) {
	if reference.Validate(op.args.Tag(), op.snapshot) {
		return
	}
	op.snapshot = op.args.Tag().Value()
	env.ScheduleUpdateModifier(op.modifier, op.element, op.args)
}

func (op *modifierOpcode) Destroy(env *Environment) {}

// trustingOpcode replaces a trusting content region wholesale when its
// markup changes.
type trustingOpcode struct {
	bounds   *Bounds
	ref      reference.Reference
	snapshot reference.Revision
	last     string
}

func (op *trustingOpcode) Update(env *Environment) {
	if reference.Validate(op.ref.Tag(), op.snapshot) {
		return
	}
	op.snapshot = op.ref.Tag().Value()
	markup := contentString(op.ref.Value())
	if markup == op.last {
		return
	}
	op.last = markup

	parent := op.bounds.Parent()
	next := op.bounds.clear()
	builder := newClientBuilder(env.doc, parent, next)
	builder.openBlock()
	appendMarkup(builder, markup)
	op.bounds = builder.closeBlock()
}

func (op *trustingOpcode) Destroy(env *Environment) {}

// ---------------------------------------------------------------------------
// Conditional blocks
// ---------------------------------------------------------------------------

// blockOpcode retains an if, unless or with block: the live branch's bounds
// and opcodes plus everything needed to render the other branch on a state
// flip.
type blockOpcode struct {
	cond     *reference.ConditionalReference
	inverted bool
	state    bool
	snapshot reference.Revision

	dflt    *template.InlineBlock
	inverse *template.InlineBlock
	// scopeFor returns the scope a branch renders in; the default branch of
	// a with block carries the value binding.
	scopeFor func(useDefault bool) *Scope

	bounds   *Bounds
	children []UpdatingOpcode
}

// chosen returns the inline block the current state selects.
func (op *blockOpcode) chosen() *template.InlineBlock {
	if op.state != op.inverted {
		return op.dflt
	}
	return op.inverse
}

func (op *blockOpcode) Update(env *Environment) {
	if !reference.Validate(op.cond.Tag(), op.snapshot) {
		op.snapshot = op.cond.Tag().Value()
		state := op.cond.Bool()
		if state != op.state {
			op.state = state
			op.swap(env)
			return
		}
	}
	updateOpcodes(env, op.children)
}

// swap tears the live branch down and renders the other one in its place.
// The branch's position in the sibling list is preserved by the placeholder
// an empty branch renders.
func (op *blockOpcode) swap(env *Environment) {
	destroyOpcodes(env, op.children)
	parent := op.bounds.Parent()
	next := op.bounds.clear()
	op.children, op.bounds = renderNested(env, op.chosen(), op.scopeFor(op.state != op.inverted), parent, next)
}

func (op *blockOpcode) Destroy(env *Environment) {
	destroyOpcodes(env, op.children)
}

// renderNested renders an inline block (nil renders the empty placeholder)
// into place with a fresh client builder, returning the opcodes and bounds
// it produced.
func renderNested(env *Environment, block *template.InlineBlock, scope *Scope, parent, next *dom.Node) ([]UpdatingOpcode, *Bounds) {
	builder := newClientBuilder(env.doc, parent, next)
	vm := &AppendVM{env: env, builder: builder, mode: ModeClient}
	children := vm.pushList()
	builder.openBlock()
	if block != nil {
		vm.pushFrame(&frame{stmts: block.Statements, scope: scope})
	}
	for vm.Next() {
	}
	bounds := builder.closeBlock()
	return *children, bounds
}

// ---------------------------------------------------------------------------
// Each blocks
// ---------------------------------------------------------------------------

// eachEntry retains one rendered row: its key, the root reference the row's
// block parameter reads through, its bounds and its opcodes.
type eachEntry struct {
	key      string
	rowRef   *reference.RootReference
	bounds   *Bounds
	children []UpdatingOpcode
}

// eachOpcode retains a list block. On an items change it diffs old entries
// against new items by key, reusing and moving rendered rows rather than
// rebuilding them.
type eachOpcode struct {
	scope   *Scope
	block   *template.InlineBlock
	inverse *template.InlineBlock
	key     string
	param   int

	itemsRef reference.Reference
	snapshot reference.Revision

	bounds  *Bounds
	entries []*eachEntry

	empty         bool
	emptyChildren []UpdatingOpcode
}

func (op *eachOpcode) Update(env *Environment) {
	if !reference.Validate(op.itemsRef.Tag(), op.snapshot) {
		op.snapshot = op.itemsRef.Tag().Value()
		op.sync(env)
		return
	}
	if op.empty {
		updateOpcodes(env, op.emptyChildren)
		return
	}
	for _, e := range op.entries {
		updateOpcodes(env, e.children)
	}
}

func (op *eachOpcode) Destroy(env *Environment) {
	destroyOpcodes(env, op.emptyChildren)
	for _, e := range op.entries {
		destroyOpcodes(env, e.children)
	}
}

// sync reconciles the rendered rows with the current items.
func (op *eachOpcode) sync(env *Environment) {
	items := toSlice(op.itemsRef.Value())
	parent := op.bounds.Parent()

	if len(items) == 0 {
		if op.empty {
			updateOpcodes(env, op.emptyChildren)
			return
		}
		for _, e := range op.entries {
			destroyOpcodes(env, e.children)
		}
		op.entries = nil
		next := op.bounds.clear()
		op.emptyChildren, op.bounds = renderNested(env, op.inverse, op.scope, parent, next)
		op.empty = true
		return
	}

	if op.empty {
		destroyOpcodes(env, op.emptyChildren)
		op.emptyChildren = nil
		op.empty = false
		next := op.bounds.clear()
		op.buildAll(env, items, parent, next)
		return
	}

	op.diff(env, items, parent)
}

// buildAll renders every row fresh, in order, before next.
func (op *eachOpcode) buildAll(env *Environment, items []any, parent, next *dom.Node) {
	op.entries = make([]*eachEntry, len(items))
	for i, item := range items {
		op.entries[i] = op.buildEntry(env, item, i, parent, next)
	}
	op.bounds = &Bounds{
		parent: parent,
		first:  op.entries[0].bounds.First(),
		last:   op.entries[len(items)-1].bounds.Last(),
	}
}

func (op *eachOpcode) buildEntry(env *Environment, item any, idx int, parent, before *dom.Node) *eachEntry {
	rowRef := reference.NewRootReference(item)
	rowScope := op.scope.Child()
	if op.param >= 0 {
		rowScope.BindSymbol(op.param, rowRef)
	}
	children, bounds := renderNested(env, op.block, rowScope, parent, before)
	return &eachEntry{
		key:      entryKey(item, op.key, idx),
		rowRef:   rowRef,
		bounds:   bounds,
		children: children,
	}
}

// diff reconciles by key, walking the new items back to front so each row's
// insertion point is already final.
func (op *eachOpcode) diff(env *Environment, items []any, parent *dom.Node) {
	oldByKey := make(map[string]*eachEntry, len(op.entries))
	for _, e := range op.entries {
		oldByKey[e.key] = e
	}

	next := make([]*eachEntry, len(items))
	before := op.bounds.nextSibling()
	for i := len(items) - 1; i >= 0; i-- {
		key := entryKey(items[i], op.key, i)
		if e, ok := oldByKey[key]; ok {
			delete(oldByKey, key)
			e.rowRef.Update(items[i])
			if e.bounds.nextSibling() != before {
				e.bounds.moveBefore(parent, before)
			}
			next[i] = e
		} else {
			next[i] = op.buildEntry(env, items[i], i, parent, before)
		}
		before = next[i].bounds.First()
	}

	for _, e := range oldByKey {
		destroyOpcodes(env, e.children)
		e.bounds.clear()
	}

	op.entries = next
	for _, e := range op.entries {
		updateOpcodes(env, e.children)
	}
	op.bounds = &Bounds{
		parent: parent,
		first:  next[0].bounds.First(),
		last:   next[len(next)-1].bounds.Last(),
	}
}

// ---------------------------------------------------------------------------
// Render result
// ---------------------------------------------------------------------------

// RenderResult is the handle a finished append pass returns: the rendered
// bounds plus the retained opcode list driving rerenders.
type RenderResult struct {
	env     *Environment
	bounds  *Bounds
	opcodes []UpdatingOpcode
}

// Bounds returns the node range the render produced.
func (r *RenderResult) Bounds() *Bounds { return r.bounds }

// Rerender walks the opcode list, patching everything whose state changed
// since the last pass. It must run inside an open transaction. When nothing
// changed, the pass performs no tree writes.
func (r *RenderResult) Rerender() {
	if !r.env.InTransaction() {
		panic("vm: Rerender outside a transaction")
	}
	updateOpcodes(r.env, r.opcodes)
}

// Destroy tears the rendered output down: opcode destructors run (queueing
// DidDestroy callbacks on the open transaction) and the nodes are removed.
func (r *RenderResult) Destroy() {
	if !r.env.InTransaction() {
		panic("vm: Destroy outside a transaction")
	}
	destroyOpcodes(r.env, r.opcodes)
	r.bounds.clear()
}
