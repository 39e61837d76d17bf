package vm

import (
	"testing"

	"github.com/bekzod/glimmer-vm/dom"
)

type recordingHooks struct {
	log  *[]string
	name string
}

func (r *recordingHooks) DidCreate() { *r.log = append(*r.log, "create:"+r.name) }
func (r *recordingHooks) DidUpdate() { *r.log = append(*r.log, "update:"+r.name) }
func (r *recordingHooks) Destroy()   { *r.log = append(*r.log, "destroy:"+r.name) }

type recordingModifier struct {
	log  *[]string
	name string
}

func (m *recordingModifier) Install(el *dom.Node, args *EvaluatedArgs) {
	*m.log = append(*m.log, "install:"+m.name)
}

func (m *recordingModifier) Update(el *dom.Node, args *EvaluatedArgs) {
	*m.log = append(*m.log, "modupdate:"+m.name)
}

func TestCommitDrainOrder(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	var log []string
	el := env.Document().CreateElement("div")

	env.Begin()
	// Register out of drain order: commit must still run created, updated,
	// destroyed, installs, updates.
	env.ScheduleUpdateModifier(&recordingModifier{&log, "m"}, el, &EvaluatedArgs{})
	env.ScheduleInstallModifier(&recordingModifier{&log, "m"}, el, &EvaluatedArgs{})
	env.DidDestroy(&recordingHooks{&log, "a"})
	env.DidUpdate(&recordingHooks{&log, "a"})
	env.DidCreate(&recordingHooks{&log, "a"})
	env.DidCreate(&recordingHooks{&log, "b"})
	env.Commit()

	want := []string{"create:a", "create:b", "update:a", "destroy:a", "install:m", "modupdate:m"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log[%d] = %q, want %q (full log %v)", i, log[i], want[i], log)
		}
	}
}

func TestNoCallbacksBeforeCommit(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	var log []string

	env.Begin()
	env.DidCreate(&recordingHooks{&log, "a"})
	if len(log) != 0 {
		t.Fatal("callback ran before Commit")
	}
	env.Commit()
	if len(log) != 1 {
		t.Fatalf("callback count after commit = %d, want 1", len(log))
	}
}

func TestNestedBeginPanics(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	env.Begin()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nested Begin")
		}
	}()
	env.Begin()
}

func TestCommitWithoutBeginPanics(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Commit without Begin")
		}
	}()
	env.Commit()
}

func TestSchedulingOutsideTransactionPanics(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic scheduling outside a transaction")
		}
	}()
	env.DidCreate(&recordingHooks{&[]string{}, "a"})
}

func TestCommitClosesTransaction(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	env.Begin()
	if !env.InTransaction() {
		t.Fatal("InTransaction = false after Begin")
	}
	env.Commit()
	if env.InTransaction() {
		t.Fatal("InTransaction = true after Commit")
	}
	// A fresh pass can begin.
	env.Begin()
	env.Commit()
}
