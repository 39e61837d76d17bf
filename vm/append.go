package vm

import (
	"fmt"
	"strings"

	"github.com/bekzod/glimmer-vm/dom"
	"github.com/bekzod/glimmer-vm/reference"
	"github.com/bekzod/glimmer-vm/template"
)

// ---------------------------------------------------------------------------
// Append pass
// ---------------------------------------------------------------------------

// RenderMode selects how the append pass materializes output.
type RenderMode int

const (
	// ModeClient builds plain nodes.
	ModeClient RenderMode = iota
	// ModeSerialize builds nodes plus marker comments for later rehydration.
	ModeSerialize
	// ModeRehydrate claims existing serialized nodes instead of building.
	ModeRehydrate
)

// RenderOptions configures one append pass.
type RenderOptions struct {
	// Self is bound to scope slot 0. Nil renders with the absent value.
	Self reference.Reference
	// Parent receives the rendered nodes.
	Parent *dom.Node
	// NextSibling, when non-nil, is the node output is inserted before.
	NextSibling *dom.Node
	// Mode selects client, serialize or rehydrate output.
	Mode RenderMode
}

// frame is one unit of pending work: a statement list with an instruction
// pointer and the scope it runs in, or a live each-loop.
type frame struct {
	stmts []template.Statement
	ip    int
	scope *Scope
	each  *eachLoop
	exit  func()
}

// AppendVM renders one template stepwise. Each Next call executes a single
// statement, so a host can interleave rendering with other work; Run drains
// the machine in one call.
type AppendVM struct {
	env     *Environment
	builder treeBuilder
	mode    RenderMode

	frames []*frame
	lists  []*[]UpdatingOpcode

	result *RenderResult
	done   bool
}

// Render starts an append pass for t. The environment must have an open
// transaction; the returned machine is driven with Next or Run.
func (e *Environment) Render(t *template.Template, opts RenderOptions) *AppendVM {
	if !e.InTransaction() {
		panic("vm: Render outside a transaction")
	}
	if opts.Parent == nil {
		panic("vm: Render without a parent node")
	}

	var builder treeBuilder
	switch opts.Mode {
	case ModeClient:
		builder = newClientBuilder(e.doc, opts.Parent, opts.NextSibling)
	case ModeSerialize:
		builder = newSerializeBuilder(e.doc, opts.Parent, opts.NextSibling)
	case ModeRehydrate:
		builder = newRehydrateBuilder(e.doc, opts.Parent, opts.NextSibling, e.StrictRehydration)
	default:
		panic(fmt.Sprintf("vm: unknown render mode %d", opts.Mode))
	}

	self := opts.Self
	if self == nil {
		self = reference.Undefined()
	}
	scope := NewRootScope(self, t.Symbols.Size())

	vm := &AppendVM{env: e, builder: builder, mode: opts.Mode}
	root := vm.pushList()
	builder.openBlock()
	vm.pushFrame(&frame{stmts: t.Statements, scope: scope, exit: func() {
		bounds := builder.closeBlock()
		vm.popList()
		vm.result = &RenderResult{env: e, bounds: bounds, opcodes: *root}
	}})
	return vm
}

// Env returns the environment the machine renders in.
func (vm *AppendVM) Env() *Environment { return vm.env }

// Scope returns the scope of the currently executing frame.
func (vm *AppendVM) Scope() *Scope {
	return vm.frames[len(vm.frames)-1].scope
}

// Next executes one statement. It returns false once the pass is complete.
func (vm *AppendVM) Next() bool {
	if vm.done {
		return false
	}
	if len(vm.frames) == 0 {
		vm.done = true
		return false
	}
	f := vm.frames[len(vm.frames)-1]
	if f.each != nil {
		if !f.each.step(vm) {
			vm.popFrame()
		}
		return true
	}
	if f.ip < len(f.stmts) {
		s := f.stmts[f.ip]
		f.ip++
		vm.execute(s, f.scope)
		return true
	}
	vm.popFrame()
	return true
}

// Run drains the machine and returns the finished result.
func (vm *AppendVM) Run() *RenderResult {
	for vm.Next() {
	}
	return vm.Result()
}

// Done reports whether the pass has finished.
func (vm *AppendVM) Done() bool { return vm.done }

// Result returns the finished render result. Calling it before the pass
// completes is a caller bug.
func (vm *AppendVM) Result() *RenderResult {
	if vm.result == nil {
		panic("vm: Result before the render pass completed")
	}
	return vm.result
}

func (vm *AppendVM) pushFrame(f *frame) {
	vm.frames = append(vm.frames, f)
}

func (vm *AppendVM) popFrame() {
	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	if f.exit != nil {
		f.exit()
	}
}

func (vm *AppendVM) pushList() *[]UpdatingOpcode {
	list := &[]UpdatingOpcode{}
	vm.lists = append(vm.lists, list)
	return list
}

func (vm *AppendVM) popList() {
	vm.lists = vm.lists[:len(vm.lists)-1]
}

// EmitOpcode appends an updating opcode to the innermost open block. Block
// handlers use this to register their own update logic.
func (vm *AppendVM) EmitOpcode(op UpdatingOpcode) {
	list := vm.lists[len(vm.lists)-1]
	*list = append(*list, op)
}

// RenderInline schedules an inline block to render in the given scope.
// Block handlers use this to render the bodies they were invoked with or a
// layout of their own.
func (vm *AppendVM) RenderInline(block *template.InlineBlock, scope *Scope) {
	if block == nil {
		return
	}
	vm.pushFrame(&frame{stmts: block.Statements, scope: scope})
}

// EvalExpr evaluates an expression in the current scope.
func (vm *AppendVM) EvalExpr(e template.Expression) reference.Reference {
	return evaluate(vm.env, vm.Scope(), e)
}

// ---------------------------------------------------------------------------
// Statement execution
// ---------------------------------------------------------------------------

func (vm *AppendVM) execute(s template.Statement, scope *Scope) {
	switch s := s.(type) {
	case *template.Text:
		vm.builder.appendText(s.Content)
	case *template.Comment:
		vm.builder.appendComment(s.Content)
	case *template.OpenElement:
		vm.builder.openElement(s.Tag, s.Namespace)
	case *template.FlushElement:
		vm.builder.flushElement()
	case *template.CloseElement:
		vm.builder.closeElement()
	case *template.StaticAttr:
		el := vm.builder.constructing()
		dom.AttributeFor(el, s.Name, true, s.Namespace).Set(el, s.Value)
	case *template.DynamicAttr:
		vm.executeDynamicAttr(s, scope)
	case *template.Append:
		ref := evaluate(vm.env, scope, s.Value)
		if s.Trusting {
			vm.trustingAppend(ref)
		} else {
			vm.textAppend(ref)
		}
	case *template.Modifier:
		vm.executeModifier(s, scope)
	case *template.IfBlock:
		vm.executeConditional(s.Condition, s.Default, s.Inverse, false, scope)
	case *template.UnlessBlock:
		vm.executeConditional(s.Condition, s.Default, s.Inverse, true, scope)
	case *template.WithBlock:
		vm.executeWith(s, scope)
	case *template.EachBlock:
		vm.executeEach(s, scope)
	case *template.Block:
		name := strings.Join(s.Path, ".")
		handler, ok := vm.env.Block(name)
		if !ok {
			panic(fmt.Sprintf("vm: no handler for block %q", name))
		}
		handler(vm, s)
	case *template.Yield:
		vm.executeYield(s, scope)
	case *template.Partial:
		vm.executePartial(s, scope)
	default:
		panic(fmt.Sprintf("vm: cannot execute statement %T", s))
	}
}

func (vm *AppendVM) executeDynamicAttr(s *template.DynamicAttr, scope *Scope) {
	el := vm.builder.constructing()
	ref := evaluate(vm.env, scope, s.Value)
	strategy := dom.AttributeFor(el, s.Name, s.Trusting, s.Namespace)
	strategy.Set(el, ref.Value())
	if !reference.IsConst(ref.Tag()) {
		vm.EmitOpcode(&attrOpcode{
			element:  el,
			strategy: strategy,
			ref:      ref,
			snapshot: ref.Tag().Value(),
		})
	}
}

// textAppend inserts dynamic content as a text node. The node gets its own
// block so serialized output keeps it separate from adjacent static text.
func (vm *AppendVM) textAppend(ref reference.Reference) {
	text := contentString(ref.Value())
	vm.builder.openBlock()
	node := vm.builder.appendText(text)
	vm.builder.closeBlock()
	if !reference.IsConst(ref.Tag()) {
		vm.EmitOpcode(&textOpcode{
			node:     node,
			ref:      ref,
			snapshot: ref.Tag().Value(),
			last:     text,
		})
	}
}

// trustingAppend parses dynamic content as markup and splices the fragment
// in. On a value change the whole region is reparsed and replaced.
func (vm *AppendVM) trustingAppend(ref reference.Reference) {
	markup := contentString(ref.Value())
	vm.builder.openBlock()
	appendMarkup(vm.builder, markup)
	bounds := vm.builder.closeBlock()
	if !reference.IsConst(ref.Tag()) {
		vm.EmitOpcode(&trustingOpcode{
			bounds:   bounds,
			ref:      ref,
			snapshot: ref.Tag().Value(),
			last:     markup,
		})
	}
}

func appendMarkup(b treeBuilder, markup string) {
	nodes, err := dom.ParseFragment(b.document(), markup)
	if err != nil {
		b.appendText(markup)
		return
	}
	for _, n := range nodes {
		b.appendNode(n)
	}
}

func (vm *AppendVM) executeModifier(s *template.Modifier, scope *Scope) {
	el := vm.builder.constructing()
	mod, ok := vm.env.Modifier(s.Name)
	if !ok {
		panic(fmt.Sprintf("vm: unknown modifier %q", s.Name))
	}
	args := evaluateArgs(vm.env, scope, s.Args, nil)
	vm.env.ScheduleInstallModifier(mod, el, args)
	if !reference.IsConst(args.Tag()) {
		vm.EmitOpcode(&modifierOpcode{
			modifier: mod,
			element:  el,
			args:     args,
			snapshot: args.Tag().Value(),
		})
	}
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// renderBranch renders one inline block (nil is an empty branch) bracketed
// by its own bounds, capturing the opcodes it produces. finish runs once the
// branch body has fully executed.
func (vm *AppendVM) renderBranch(block *template.InlineBlock, scope *Scope, finish func(bounds *Bounds, children []UpdatingOpcode)) {
	vm.builder.openBlock()
	children := vm.pushList()
	var stmts []template.Statement
	if block != nil {
		stmts = block.Statements
	}
	vm.pushFrame(&frame{stmts: stmts, scope: scope, exit: func() {
		bounds := vm.builder.closeBlock()
		vm.popList()
		finish(bounds, *children)
	}})
}

// emitBranchOpcode registers op in the parent opcode list, or hoists the
// branch's child opcodes directly when the governing reference can never
// change.
func (vm *AppendVM) emitBranchOpcode(tag reference.Tag, op UpdatingOpcode, children []UpdatingOpcode) {
	if reference.IsConst(tag) {
		for _, c := range children {
			vm.EmitOpcode(c)
		}
		return
	}
	vm.EmitOpcode(op)
}

func (vm *AppendVM) executeConditional(cond template.Expression, dflt, inverse *template.InlineBlock, inverted bool, scope *Scope) {
	condRef := reference.NewConditionalReference(evaluate(vm.env, scope, cond))
	state := condRef.Bool()

	op := &blockOpcode{
		cond:     condRef,
		inverted: inverted,
		state:    state,
		snapshot: condRef.Tag().Value(),
		dflt:     dflt,
		inverse:  inverse,
		scopeFor: func(bool) *Scope { return scope },
	}
	vm.renderBranch(op.chosen(), scope, func(bounds *Bounds, children []UpdatingOpcode) {
		op.bounds = bounds
		op.children = children
		vm.emitBranchOpcode(condRef.Tag(), op, children)
	})
}

func (vm *AppendVM) executeWith(s *template.WithBlock, scope *Scope) {
	valRef := evaluate(vm.env, scope, s.Value)
	state := reference.Truthy(valRef.Value())

	boundScope := scope.Child()
	if s.Default != nil && len(s.Default.Params) > 0 {
		boundScope.BindSymbol(s.Default.Params[0], valRef)
	}

	op := &blockOpcode{
		cond:     reference.NewConditionalReference(valRef),
		state:    state,
		snapshot: valRef.Tag().Value(),
		dflt:     s.Default,
		inverse:  s.Inverse,
		scopeFor: func(useDefault bool) *Scope {
			if useDefault {
				return boundScope
			}
			return scope
		},
	}
	vm.renderBranch(op.chosen(), op.scopeFor(state), func(bounds *Bounds, children []UpdatingOpcode) {
		op.bounds = bounds
		op.children = children
		vm.emitBranchOpcode(valRef.Tag(), op, children)
	})
}

func (vm *AppendVM) executeEach(s *template.EachBlock, scope *Scope) {
	itemsRef := evaluate(vm.env, scope, s.Items)
	items := toSlice(itemsRef.Value())

	param := -1
	if s.Default != nil && len(s.Default.Params) > 0 {
		param = s.Default.Params[0]
	}

	op := &eachOpcode{
		scope:    scope,
		block:    s.Default,
		inverse:  s.Inverse,
		key:      s.Key,
		param:    param,
		itemsRef: itemsRef,
		snapshot: itemsRef.Tag().Value(),
	}

	if len(items) == 0 {
		vm.renderBranch(s.Inverse, scope, func(bounds *Bounds, children []UpdatingOpcode) {
			op.bounds = bounds
			op.empty = true
			op.emptyChildren = children
			vm.emitBranchOpcode(itemsRef.Tag(), op, children)
		})
		return
	}

	vm.builder.openBlock()
	vm.pushFrame(&frame{
		scope: scope,
		each:  &eachLoop{op: op, items: items},
		exit: func() {
			op.bounds = vm.builder.closeBlock()
			var all []UpdatingOpcode
			for _, e := range op.entries {
				all = append(all, e.children...)
			}
			vm.emitBranchOpcode(itemsRef.Tag(), op, all)
		},
	})
}

// eachLoop drives one iteration of an each block per VM step.
type eachLoop struct {
	op    *eachOpcode
	items []any
	idx   int
}

func (l *eachLoop) step(vm *AppendVM) bool {
	if l.idx >= len(l.items) {
		return false
	}
	item := l.items[l.idx]
	if l.idx > 0 {
		vm.builder.appendSeparator()
	}

	entry := &eachEntry{
		key:    entryKey(item, l.op.key, l.idx),
		rowRef: reference.NewRootReference(item),
	}
	rowScope := l.op.scope.Child()
	if l.op.param >= 0 {
		rowScope.BindSymbol(l.op.param, entry.rowRef)
	}

	vm.builder.openBlock()
	children := vm.pushList()
	vm.pushFrame(&frame{stmts: l.op.block.Statements, scope: rowScope, exit: func() {
		entry.bounds = vm.builder.closeBlock()
		vm.popList()
		entry.children = *children
		l.op.entries = append(l.op.entries, entry)
	}})
	l.idx++
	return true
}

// entryKey extracts the reuse key for one item. An empty key property means
// positional identity.
func entryKey(item any, key string, idx int) string {
	if key == "" || key == "@index" {
		return fmt.Sprintf("@%d", idx)
	}
	return contentString(reference.Property(item, key))
}

// ---------------------------------------------------------------------------
// Yield and partial
// ---------------------------------------------------------------------------

func (vm *AppendVM) executeYield(s *template.Yield, scope *Scope) {
	bb := scope.GetBlock(s.Symbol)
	if bb == nil {
		// Yielding to an unbound block renders nothing.
		return
	}
	target := bb.Scope.Child()
	for i, p := range bb.Block.Params {
		var ref reference.Reference
		if i < len(s.Args) {
			ref = evaluate(vm.env, scope, s.Args[i])
		} else {
			ref = reference.Undefined()
		}
		target.BindSymbol(p, ref)
	}
	vm.pushFrame(&frame{stmts: bb.Block.Statements, scope: target})
}

func (vm *AppendVM) executePartial(s *template.Partial, scope *Scope) {
	name := contentString(evaluate(vm.env, scope, s.Name).Value())
	tmpl, ok := vm.env.Partial(name)
	if !ok {
		panic(fmt.Sprintf("vm: unknown partial %q", name))
	}
	pscope := NewRootScope(scope.GetSelf(), tmpl.Symbols.Size())
	pscope.BindCallerScope(scope)
	vm.pushFrame(&frame{stmts: tmpl.Statements, scope: pscope})
}
