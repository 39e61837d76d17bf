package vm

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	"github.com/bekzod/glimmer-vm/dom"
	"github.com/bekzod/glimmer-vm/reference"
	"github.com/bekzod/glimmer-vm/template"
)

var log = commonlog.GetLogger("glimmer.env")

// Helper computes a derived reference from evaluated arguments.
type Helper func(args *EvaluatedArgs) reference.Reference

// BlockHandler renders a generic (non-built-in) block statement. Component
// and layout systems hook in here.
type BlockHandler func(vm *AppendVM, stmt *template.Block)

// Environment owns the host-facing registries and the transaction state
// machine. Exactly one transaction may be open at a time; Begin and Commit
// bracket every render and rerender pass.
type Environment struct {
	doc *dom.Document

	helpers   map[string]Helper
	modifiers map[string]Modifier
	partials  map[string]*template.Template
	blocks    map[string]BlockHandler

	tx *Transaction

	// StrictRehydration upgrades rehydration mismatch logging from debug
	// to warning. Recovery behavior is identical.
	StrictRehydration bool
}

// NewEnvironment creates an environment rendering into doc.
func NewEnvironment(doc *dom.Document) *Environment {
	return &Environment{
		doc:       doc,
		helpers:   make(map[string]Helper),
		modifiers: make(map[string]Modifier),
		partials:  make(map[string]*template.Template),
		blocks:    make(map[string]BlockHandler),
	}
}

// Document returns the output document.
func (e *Environment) Document() *dom.Document { return e.doc }

// RegisterHelper makes a helper resolvable by name.
func (e *Environment) RegisterHelper(name string, h Helper) { e.helpers[name] = h }

// Helper resolves a helper by name.
func (e *Environment) Helper(name string) (Helper, bool) {
	h, ok := e.helpers[name]
	return h, ok
}

// RegisterModifier makes a modifier resolvable by name.
func (e *Environment) RegisterModifier(name string, m Modifier) { e.modifiers[name] = m }

// Modifier resolves a modifier by name.
func (e *Environment) Modifier(name string) (Modifier, bool) {
	m, ok := e.modifiers[name]
	return m, ok
}

// RegisterPartial makes a template renderable via {{partial}}.
func (e *Environment) RegisterPartial(name string, t *template.Template) { e.partials[name] = t }

// Partial resolves a partial template by name.
func (e *Environment) Partial(name string) (*template.Template, bool) {
	t, ok := e.partials[name]
	return t, ok
}

// RegisterBlock installs a handler for a generic block name.
func (e *Environment) RegisterBlock(name string, h BlockHandler) { e.blocks[name] = h }

// Block resolves a generic block handler by name.
func (e *Environment) Block(name string) (BlockHandler, bool) {
	h, ok := e.blocks[name]
	return h, ok
}

// ---------------------------------------------------------------------------
// Transaction state machine
// ---------------------------------------------------------------------------

// Begin opens the pass transaction. A nested Begin is a caller bug.
func (e *Environment) Begin() {
	if e.tx != nil {
		panic("vm: Begin inside an open transaction")
	}
	e.tx = newTransaction()
	log.Debugf("begin pass %s", e.tx.id)
}

// Commit drains the transaction queues and closes the transaction. Commit
// without an open transaction is a caller bug.
func (e *Environment) Commit() {
	if e.tx == nil {
		panic("vm: Commit without an open transaction")
	}
	tx := e.tx
	e.tx = nil
	log.Debugf("commit pass %s: %d created, %d updated, %d destroyed, %d+%d modifiers",
		tx.id, len(tx.created), len(tx.updated), len(tx.destructors),
		len(tx.installModifier), len(tx.updateModifier))
	tx.commit()
}

// InTransaction reports whether a pass is open.
func (e *Environment) InTransaction() bool { return e.tx != nil }

func (e *Environment) transaction() *Transaction {
	if e.tx == nil {
		panic("vm: lifecycle scheduling outside a transaction")
	}
	return e.tx
}

// DidCreate queues a creation callback for commit.
func (e *Environment) DidCreate(c Lifecycle) { e.transaction().didCreate(c) }

// DidUpdate queues an update callback for commit.
func (e *Environment) DidUpdate(c Updated) { e.transaction().didUpdate(c) }

// DidDestroy queues a destructor for commit.
func (e *Environment) DidDestroy(d Destroyable) { e.transaction().didDestroy(d) }

// ScheduleInstallModifier queues a modifier install for commit.
func (e *Environment) ScheduleInstallModifier(m Modifier, el *dom.Node, args *EvaluatedArgs) {
	e.transaction().scheduleInstall(m, el, args)
}

// ScheduleUpdateModifier queues a modifier update for commit.
func (e *Environment) ScheduleUpdateModifier(m Modifier, el *dom.Node, args *EvaluatedArgs) {
	e.transaction().scheduleUpdate(m, el, args)
}
