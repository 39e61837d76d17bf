package vm

import (
	"strings"
	"testing"

	"github.com/bekzod/glimmer-vm/dom"
	"github.com/bekzod/glimmer-vm/reference"
	"github.com/bekzod/glimmer-vm/template"
)

// render runs one full append pass inside its own transaction.
func render(t *testing.T, env *Environment, tmpl *template.Template, self reference.Reference, parent *dom.Node) *RenderResult {
	t.Helper()
	env.Begin()
	result := env.Render(tmpl, RenderOptions{Self: self, Parent: parent}).Run()
	env.Commit()
	return result
}

// rerender runs one update pass inside its own transaction.
func rerender(env *Environment, result *RenderResult) {
	env.Begin()
	result.Rerender()
	env.Commit()
}

func TestRenderStatic(t *testing.T) {
	b := template.NewBuilder()
	b.OpenElement("p").StaticAttr("class", "note").FlushElement()
	b.Text("hello")
	b.CloseElement()

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	render(t, env, b.Template(), nil, parent)

	if got := dom.InnerHTML(parent); got != `<p class="note">hello</p>` {
		t.Errorf("InnerHTML = %q", got)
	}
}

func TestRenderDynamicText(t *testing.T) {
	b := template.NewBuilder()
	b.OpenElement("p").FlushElement()
	b.Append(b.Self("name"))
	b.CloseElement()

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"name": "Alice"})
	result := render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "<p>Alice</p>" {
		t.Errorf("InnerHTML = %q", got)
	}

	self.Update(map[string]any{"name": "Bob"})
	rerender(env, result)
	if got := dom.InnerHTML(parent); got != "<p>Bob</p>" {
		t.Errorf("after rerender InnerHTML = %q", got)
	}
}

func TestRerenderIsIdempotent(t *testing.T) {
	b := template.NewBuilder()
	b.OpenElement("p").DynamicAttr("title", b.Self("title")).FlushElement()
	b.Append(b.Self("name"))
	b.CloseElement()

	env := NewEnvironment(dom.NewDocument())
	doc := env.Document()
	parent := doc.CreateElement("div")
	self := reference.NewRootReference(map[string]any{"title": "t", "name": "Alice"})
	result := render(t, env, b.Template(), self, parent)

	p := parent.FirstChild
	text := p.FirstChild

	// Nothing changed: a rerender performs zero tree writes.
	doc.ResetWrites()
	rerender(env, result)
	if doc.Writes() != 0 {
		t.Errorf("unchanged rerender performed %d writes", doc.Writes())
	}

	// A change patches in place: same element, same text node.
	self.Update(map[string]any{"title": "t", "name": "Bob"})
	rerender(env, result)
	if parent.FirstChild != p {
		t.Error("element was rebuilt instead of patched")
	}
	if p.FirstChild != text {
		t.Error("text node was replaced instead of retextured")
	}
	if text.Data != "Bob" {
		t.Errorf("text = %q, want Bob", text.Data)
	}

	// Rerendering again with no further change is again write-free.
	doc.ResetWrites()
	rerender(env, result)
	if doc.Writes() != 0 {
		t.Errorf("second unchanged rerender performed %d writes", doc.Writes())
	}
}

func TestNullAttributeRemoves(t *testing.T) {
	b := template.NewBuilder()
	b.OpenElement("a").DynamicAttr("title", b.Self("title")).FlushElement()
	b.CloseElement()

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"title": "first"})
	result := render(t, env, b.Template(), self, parent)

	a := parent.FirstChild
	if v, ok := a.GetAttribute("title"); !ok || v != "first" {
		t.Fatalf("title = %q, %v", v, ok)
	}

	self.Update(map[string]any{"title": nil})
	rerender(env, result)
	if _, ok := a.GetAttribute("title"); ok {
		t.Error("title still present after null")
	}

	self.Update(map[string]any{"title": "back"})
	rerender(env, result)
	if v, _ := a.GetAttribute("title"); v != "back" {
		t.Errorf("title = %q after round trip, want back", v)
	}
}

func TestBranchSwapKeepsSiblings(t *testing.T) {
	// {{#if admin}}<p>{{user}}</p>{{/if}}!
	b := template.NewBuilder()
	b.If(b.Self("admin"), func() {
		b.OpenElement("p").FlushElement()
		b.Append(b.Self("user"))
		b.CloseElement()
	}, nil)
	b.Text("!")

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"admin": true, "user": "root"})
	result := render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "<p>root</p>!" {
		t.Fatalf("InnerHTML = %q", got)
	}
	bang := parent.LastChild

	self.Update(map[string]any{"admin": false, "user": "root"})
	rerender(env, result)
	if got := dom.InnerHTML(parent); got != "!" {
		t.Errorf("after swap InnerHTML = %q", got)
	}
	if parent.LastChild != bang {
		t.Error("sibling text node lost identity across the swap")
	}

	self.Update(map[string]any{"admin": true, "user": "root"})
	rerender(env, result)
	if got := dom.InnerHTML(parent); got != "<p>root</p>!" {
		t.Errorf("after swap back InnerHTML = %q", got)
	}
	if parent.LastChild != bang {
		t.Error("sibling text node lost identity across the second swap")
	}
}

func TestUnlessBlock(t *testing.T) {
	b := template.NewBuilder()
	b.Unless(b.Self("done"), func() {
		b.Text("pending")
	}, func() {
		b.Text("done")
	})

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"done": false})
	result := render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "pending" {
		t.Errorf("InnerHTML = %q", got)
	}
	self.Update(map[string]any{"done": true})
	rerender(env, result)
	if got := dom.InnerHTML(parent); got != "done" {
		t.Errorf("after flip InnerHTML = %q", got)
	}
}

func TestWithBlockBindsValue(t *testing.T) {
	b := template.NewBuilder()
	b.With(b.Self("account"), "acct", func(sym int) {
		b.Append(b.Get(sym, "owner"))
	}, func() {
		b.Text("no account")
	})

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{
		"account": map[string]any{"owner": "Ada"},
	})
	result := render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "Ada" {
		t.Errorf("InnerHTML = %q", got)
	}

	self.Update(map[string]any{"account": nil})
	rerender(env, result)
	if got := dom.InnerHTML(parent); got != "no account" {
		t.Errorf("after nil InnerHTML = %q", got)
	}

	self.Update(map[string]any{"account": map[string]any{"owner": "Grace"}})
	rerender(env, result)
	if got := dom.InnerHTML(parent); got != "Grace" {
		t.Errorf("after restore InnerHTML = %q", got)
	}
}

func eachTemplate() *template.Template {
	b := template.NewBuilder()
	b.OpenElement("ul").FlushElement()
	b.Each(b.Self("items"), "id", "item", func(sym int) {
		b.OpenElement("li").FlushElement()
		b.Append(b.Get(sym, "name"))
		b.CloseElement()
	}, func() {
		b.Text("empty")
	})
	b.CloseElement()
	return b.Template()
}

func item(id, name string) map[string]any {
	return map[string]any{"id": id, "name": name}
}

func TestEachKeyedReordersInPlace(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{
		"items": []any{item("a", "Ann"), item("b", "Ben"), item("c", "Cam")},
	})
	result := render(t, env, eachTemplate(), self, parent)

	ul := parent.FirstChild
	if got := dom.InnerHTML(ul); got != "<li>Ann</li><li>Ben</li><li>Cam</li>" {
		t.Fatalf("InnerHTML = %q", got)
	}

	lis := map[string]*dom.Node{}
	for n := ul.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == dom.ElementNode {
			lis[n.FirstChild.Data] = n
		}
	}

	// Move c to the front, rename b, drop a, add d.
	self.Update(map[string]any{
		"items": []any{item("c", "Cam"), item("b", "Bea"), item("d", "Dee")},
	})
	rerender(env, result)

	if got := dom.InnerHTML(ul); got != "<li>Cam</li><li>Bea</li><li>Dee</li>" {
		t.Fatalf("after diff InnerHTML = %q", got)
	}
	var after []*dom.Node
	for n := ul.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == dom.ElementNode {
			after = append(after, n)
		}
	}
	if after[0] != lis["Cam"] {
		t.Error("row c was rebuilt instead of moved")
	}
	if after[1] != lis["Ben"] {
		t.Error("row b was rebuilt instead of updated in place")
	}
	if after[2] == lis["Ann"] {
		t.Error("removed row a was reused for new key d")
	}
}

func TestEachEmptyTransitions(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"items": []any{}})
	result := render(t, env, eachTemplate(), self, parent)

	ul := parent.FirstChild
	if got := dom.InnerHTML(ul); got != "empty" {
		t.Fatalf("InnerHTML = %q", got)
	}

	self.Update(map[string]any{"items": []any{item("a", "Ann")}})
	rerender(env, result)
	if got := dom.InnerHTML(ul); got != "<li>Ann</li>" {
		t.Errorf("after fill InnerHTML = %q", got)
	}

	self.Update(map[string]any{"items": []any{}})
	rerender(env, result)
	if got := dom.InnerHTML(ul); got != "empty" {
		t.Errorf("after drain InnerHTML = %q", got)
	}
}

func TestHelperUpdates(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	env.RegisterHelper("upper", func(args *EvaluatedArgs) reference.Reference {
		arg := args.Positional[0]
		return reference.NewDerivedReference(arg.Tag(), func() any {
			return strings.ToUpper(contentString(arg.Value()))
		})
	})

	b := template.NewBuilder()
	b.Append(b.Helper("upper", b.Self("word")))

	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"word": "quiet"})
	result := render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "QUIET" {
		t.Errorf("InnerHTML = %q", got)
	}
	self.Update(map[string]any{"word": "loud"})
	rerender(env, result)
	if got := dom.InnerHTML(parent); got != "LOUD" {
		t.Errorf("after update InnerHTML = %q", got)
	}
}

func TestConcatAttribute(t *testing.T) {
	b := template.NewBuilder()
	b.OpenElement("button").
		DynamicAttr("class", b.Concat(b.Lit("btn "), b.Self("kind"))).
		FlushElement()
	b.CloseElement()

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"kind": "primary"})
	result := render(t, env, b.Template(), self, parent)

	button := parent.FirstChild
	if v, _ := button.GetAttribute("class"); v != "btn primary" {
		t.Errorf("class = %q", v)
	}

	self.Update(map[string]any{"kind": "danger"})
	rerender(env, result)
	if v, _ := button.GetAttribute("class"); v != "btn danger" {
		t.Errorf("class after update = %q", v)
	}
}

func TestTrustingAppend(t *testing.T) {
	b := template.NewBuilder()
	b.TrustingAppend(b.Self("html"))

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"html": "<b>bold</b> move"})
	result := render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "<b>bold</b> move" {
		t.Errorf("InnerHTML = %q", got)
	}

	self.Update(map[string]any{"html": "<i>soft</i>"})
	rerender(env, result)
	if got := dom.InnerHTML(parent); got != "<i>soft</i>" {
		t.Errorf("after update InnerHTML = %q", got)
	}
}

func TestUntrustingAppendEscapes(t *testing.T) {
	b := template.NewBuilder()
	b.Append(b.Self("html"))

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"html": "<b>bold</b>"})
	render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "&lt;b&gt;bold&lt;/b&gt;" {
		t.Errorf("InnerHTML = %q", got)
	}
}

func TestModifierLifecycle(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	var log []string
	env.RegisterModifier("track", &recordingModifier{&log, "track"})

	// Modifier args read dynamic state so updates are observable.
	b2 := template.NewBuilder()
	b2.OpenElement("div")
	b2.Modifier("track", b2.Self("x"))
	b2.FlushElement()
	b2.CloseElement()

	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"x": 1})
	result := render(t, env, b2.Template(), self, parent)

	if len(log) != 1 || log[0] != "install:track" {
		t.Fatalf("after render log = %v", log)
	}

	// Unchanged rerender schedules nothing.
	rerender(env, result)
	if len(log) != 1 {
		t.Fatalf("unchanged rerender grew log to %v", log)
	}

	self.Update(map[string]any{"x": 2})
	rerender(env, result)
	if len(log) != 2 || log[1] != "modupdate:track" {
		t.Fatalf("after update log = %v", log)
	}
}

func TestPartial(t *testing.T) {
	pb := template.NewBuilder()
	pb.Text("Hi ")
	pb.Append(pb.Self("name"))
	partial := pb.Template()

	b := template.NewBuilder()
	b.OpenElement("header").FlushElement()
	b.Partial(b.Lit("greeting"))
	b.CloseElement()

	env := NewEnvironment(dom.NewDocument())
	env.RegisterPartial("greeting", partial)
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"name": "Ada"})
	result := render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "<header>Hi Ada</header>" {
		t.Errorf("InnerHTML = %q", got)
	}
	self.Update(map[string]any{"name": "Grace"})
	rerender(env, result)
	if got := dom.InnerHTML(parent); got != "<header>Hi Grace</header>" {
		t.Errorf("after update InnerHTML = %q", got)
	}
}

func TestBlockHandlerYieldAndHasBlock(t *testing.T) {
	// A layout that yields its body block with the page title, or falls
	// back when no body was passed.
	lb := template.NewBuilder()
	bodySym := lb.Symbols().Allocate("&body")
	lb.OpenElement("section").FlushElement()
	lb.If(&template.HasBlock{Symbol: bodySym}, func() {
		lb.Yield(bodySym, lb.Self("title"))
	}, func() {
		lb.Text("empty")
	})
	lb.CloseElement()
	layout := lb.Template()

	env := NewEnvironment(dom.NewDocument())
	env.RegisterBlock("card", func(avm *AppendVM, stmt *template.Block) {
		scope := NewRootScope(avm.Scope().GetSelf(), layout.Symbols.Size())
		if stmt.Default != nil {
			scope.BindBlock(bodySym, &BoundBlock{Block: stmt.Default, Scope: avm.Scope()})
		}
		avm.RenderInline(&template.InlineBlock{Statements: layout.Statements}, scope)
	})

	b := template.NewBuilder()
	b.Block([]string{"card"}, template.BlockOptions{Params: []string{"title"}}, func(params []int) {
		b.Text("Title: ")
		b.Append(b.Get(params[0]))
	}, nil)

	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"title": "Home"})
	render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "<section>Title: Home</section>" {
		t.Errorf("InnerHTML = %q", got)
	}

	// Without a body block, HasBlock is false and the fallback renders.
	b2 := template.NewBuilder()
	b2.Block([]string{"card"}, template.BlockOptions{}, nil, nil)
	parent2 := env.Document().CreateElement("div")
	render(t, env, b2.Template(), self, parent2)

	if got := dom.InnerHTML(parent2); got != "<section>empty</section>" {
		t.Errorf("fallback InnerHTML = %q", got)
	}
}

func TestStepwiseExecution(t *testing.T) {
	b := template.NewBuilder()
	b.OpenElement("p").FlushElement()
	b.Text("one")
	b.CloseElement()
	b.Text("two")

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	env.Begin()
	machine := env.Render(b.Template(), RenderOptions{Parent: parent})

	steps := 0
	for machine.Next() {
		steps++
		if machine.Done() {
			t.Fatal("Done() = true while Next() still returns true")
		}
	}
	env.Commit()

	if steps == 0 {
		t.Fatal("machine completed without executing any step")
	}
	if !machine.Done() {
		t.Error("Done() = false after Next() returned false")
	}
	if got := dom.InnerHTML(parent); got != "<p>one</p>two" {
		t.Errorf("InnerHTML = %q", got)
	}
	if machine.Result() == nil {
		t.Error("Result() = nil after completion")
	}
}

func TestRenderOutsideTransactionPanics(t *testing.T) {
	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	b := template.NewBuilder()
	b.Text("x")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic rendering outside a transaction")
		}
	}()
	env.Render(b.Template(), RenderOptions{Parent: parent})
}

func TestDestroyDetachesAndQueues(t *testing.T) {
	b := template.NewBuilder()
	b.OpenElement("p").FlushElement()
	b.Append(b.Self("name"))
	b.CloseElement()

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{"name": "gone"})
	result := render(t, env, b.Template(), self, parent)

	env.Begin()
	result.Destroy()
	env.Commit()

	if got := dom.InnerHTML(parent); got != "" {
		t.Errorf("InnerHTML after Destroy = %q, want empty", got)
	}
}

func TestPathMissRendersEmpty(t *testing.T) {
	b := template.NewBuilder()
	b.Append(b.Self("missing", "deep", "path"))

	env := NewEnvironment(dom.NewDocument())
	parent := env.Document().CreateElement("div")
	self := reference.NewRootReference(map[string]any{})
	render(t, env, b.Template(), self, parent)

	if got := dom.InnerHTML(parent); got != "" {
		t.Errorf("InnerHTML = %q, want empty for a path miss", got)
	}
}
