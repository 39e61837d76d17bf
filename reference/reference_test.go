package reference

import "testing"

// ---------------------------------------------------------------------------
// Root and path references
// ---------------------------------------------------------------------------

func TestRootReferenceUpdate(t *testing.T) {
	root := NewRootReference(map[string]any{"name": "tom"})
	name := root.Get("name")

	if got := name.Value(); got != "tom" {
		t.Fatalf("name = %v, want tom", got)
	}

	snapshot := name.Tag().Value()
	root.Update(map[string]any{"name": "yehuda"})

	if Validate(name.Tag(), snapshot) {
		t.Fatal("path tag must go stale when root updates")
	}
	if got := name.Value(); got != "yehuda" {
		t.Fatalf("name after update = %v, want yehuda", got)
	}
}

func TestPathReferenceNilSafety(t *testing.T) {
	root := NewRootReference(nil)
	deep := NewPathReference(NewPathReference(root, "user"), "address")

	if got := deep.Value(); got != nil {
		t.Fatalf("read through nil = %v, want nil", got)
	}

	root.Update(map[string]any{"user": map[string]any{}})
	if got := deep.Value(); got != nil {
		t.Fatalf("read of absent key = %v, want nil", got)
	}
}

func TestPathReferenceIsFresh(t *testing.T) {
	root := NewRootReference(map[string]any{"x": 1})
	if root.Get("x") == root.Get("x") {
		t.Fatal("Get must return a fresh child reference each call")
	}
}

type user struct {
	Name  string
	Admin bool
}

func TestPathReferenceStructFields(t *testing.T) {
	root := NewRootReference(&user{Name: "chancancode", Admin: true})

	tests := []struct {
		key  string
		want any
	}{
		{"Name", "chancancode"},
		{"name", "chancancode"}, // case-insensitive fallback
		{"Admin", true},
		{"missing", nil},
	}
	for _, tt := range tests {
		if got := root.Get(tt.key).Value(); got != tt.want {
			t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestRootReferenceDirtyInPlace(t *testing.T) {
	obj := map[string]any{"count": 1}
	root := NewRootReference(obj)
	count := root.Get("count")
	snapshot := count.Tag().Value()

	obj["count"] = 2
	root.Dirty()

	if Validate(count.Tag(), snapshot) {
		t.Fatal("in-place dirty must invalidate derived paths")
	}
	if got := count.Value(); got != 2 {
		t.Fatalf("count = %v, want 2", got)
	}
}

// ---------------------------------------------------------------------------
// Conditional and constant references
// ---------------------------------------------------------------------------

func TestTruthy(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"x", true},
		{0, false},
		{1, true},
		{0.0, false},
		{[]any{}, false},
		{[]any{1}, true},
		{map[string]any{}, false},
		{map[string]any{"a": 1}, true},
		{&user{}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.value); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestConditionalReference(t *testing.T) {
	root := NewRootReference(map[string]any{"admin": true})
	cond := NewConditionalReference(root.Get("admin"))

	if !cond.Bool() {
		t.Fatal("cond = false, want true")
	}
	snapshot := cond.Tag().Value()
	root.Update(map[string]any{"admin": false})
	if Validate(cond.Tag(), snapshot) {
		t.Fatal("conditional tag must follow inner tag")
	}
	if cond.Bool() {
		t.Fatal("cond = true after update, want false")
	}
}

func TestConstReference(t *testing.T) {
	c := NewConstReference("static")
	if c.Tag() != ConstTag() {
		t.Fatal("const reference must carry the const tag")
	}
	if Undefined().Value() != nil {
		t.Fatal("undefined reference must read as nil")
	}
}

func TestDerivedReference(t *testing.T) {
	root := NewRootReference(2)
	doubled := NewDerivedReference(root.Tag(), func() any {
		return root.Value().(int) * 2
	})

	if got := doubled.Value(); got != 4 {
		t.Fatalf("derived value = %v, want 4", got)
	}

	snapshot := doubled.Tag().Value()
	if !Validate(doubled.Tag(), snapshot) {
		t.Fatal("fresh snapshot should validate")
	}

	root.Update(5)
	if Validate(doubled.Tag(), snapshot) {
		t.Fatal("derived tag must go stale when its input updates")
	}
	if got := doubled.Value(); got != 10 {
		t.Fatalf("derived value after update = %v, want 10", got)
	}
}

func TestPropertyLookup(t *testing.T) {
	if got := Property(map[string]any{"a": 1}, "a"); got != 1 {
		t.Errorf("map lookup = %v, want 1", got)
	}
	if got := Property(&user{Name: "x"}, "name"); got != "x" {
		t.Errorf("struct lookup = %v, want x", got)
	}
	if got := Property(nil, "a"); got != nil {
		t.Errorf("nil base = %v, want nil", got)
	}
}
