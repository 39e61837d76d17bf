package vm

import (
	"github.com/google/uuid"

	"github.com/bekzod/glimmer-vm/dom"
)

// ---------------------------------------------------------------------------
// Transaction: batched lifecycle side effects
// ---------------------------------------------------------------------------

// Lifecycle is implemented by components that want creation notification.
type Lifecycle interface {
	DidCreate()
}

// Updated is implemented by components that want update notification.
type Updated interface {
	DidUpdate()
}

// Destroyable is anything with teardown work.
type Destroyable interface {
	Destroy()
}

// Modifier attaches host behavior to an element. Install and Update run at
// commit time, never during tree construction.
type Modifier interface {
	Install(element *dom.Node, args *EvaluatedArgs)
	Update(element *dom.Node, args *EvaluatedArgs)
}

type modifierJob struct {
	modifier Modifier
	element  *dom.Node
	args     *EvaluatedArgs
}

// Transaction batches every side-effecting callback registered during one
// render or rerender pass. Queues are append-only and drained at commit in
// a fixed order, so no user callback ever observes a partially built tree
// and the callback order is deterministic regardless of tree shape.
type Transaction struct {
	id uuid.UUID

	created         []Lifecycle
	updated         []Updated
	destructors     []Destroyable
	installModifier []modifierJob
	updateModifier  []modifierJob
}

func newTransaction() *Transaction {
	return &Transaction{id: uuid.New()}
}

// ID is the pass identifier, for log correlation.
func (t *Transaction) ID() uuid.UUID { return t.id }

func (t *Transaction) didCreate(c Lifecycle)    { t.created = append(t.created, c) }
func (t *Transaction) didUpdate(c Updated)      { t.updated = append(t.updated, c) }
func (t *Transaction) didDestroy(d Destroyable) { t.destructors = append(t.destructors, d) }

func (t *Transaction) scheduleInstall(m Modifier, el *dom.Node, args *EvaluatedArgs) {
	t.installModifier = append(t.installModifier, modifierJob{m, el, args})
}

func (t *Transaction) scheduleUpdate(m Modifier, el *dom.Node, args *EvaluatedArgs) {
	t.updateModifier = append(t.updateModifier, modifierJob{m, el, args})
}

// commit drains the queues: created, updated, destroyed, modifier installs,
// modifier updates. FIFO within each queue.
func (t *Transaction) commit() {
	for _, c := range t.created {
		c.DidCreate()
	}
	for _, c := range t.updated {
		c.DidUpdate()
	}
	for _, d := range t.destructors {
		d.Destroy()
	}
	for _, j := range t.installModifier {
		j.modifier.Install(j.element, j.args)
	}
	for _, j := range t.updateModifier {
		j.modifier.Update(j.element, j.args)
	}
}
