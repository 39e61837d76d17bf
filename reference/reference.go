package reference

import (
	"reflect"
	"strings"
)

// ---------------------------------------------------------------------------
// References
// ---------------------------------------------------------------------------

// Reference is a lazy, re-derivable accessor to a value. Value is computed
// from the referenced location at call time and is never cached across
// revisions; Tag tells the caller whether a recomputation could observe
// anything new.
type Reference interface {
	Value() any
	Tag() Tag
}

// Pathable is a reference that can derive child references by property name.
// Deriving is a pure construction: Get always returns a fresh, cheap child
// and never mutates the parent.
type Pathable interface {
	Reference
	Get(key string) Reference
}

// ---------------------------------------------------------------------------
// Root reference
// ---------------------------------------------------------------------------

// RootReference wraps a mutable host value. It is the sole owner of the
// value's identity; path references derived from it read through it without
// taking ownership.
type RootReference struct {
	value any
	tag   *DirtyableTag
}

// NewRootReference wraps value in an updatable root reference.
func NewRootReference(value any) *RootReference {
	return &RootReference{value: value, tag: NewDirtyableTag()}
}

// Value returns the wrapped value.
func (r *RootReference) Value() any { return r.value }

// Tag returns the root's dirtyable tag.
func (r *RootReference) Tag() Tag { return r.tag }

// Update replaces the wrapped value and dirties the tag.
func (r *RootReference) Update(value any) {
	r.value = value
	r.tag.Dirty()
}

// Dirty marks the wrapped value as changed in place, for hosts that mutate
// the underlying object rather than replacing it.
func (r *RootReference) Dirty() {
	r.tag.Dirty()
}

// Get derives a child path reference.
func (r *RootReference) Get(key string) Reference {
	return &PathReference{parent: r, key: key}
}

// ---------------------------------------------------------------------------
// Path reference
// ---------------------------------------------------------------------------

// PathReference reads one property of its parent's value. Reading through a
// nil or absent parent value yields nil rather than failing; "no value"
// short-circuits without aborting a render.
type PathReference struct {
	parent Reference
	key    string
}

// NewPathReference derives a reference to parent.Value()[key].
func NewPathReference(parent Reference, key string) *PathReference {
	return &PathReference{parent: parent, key: key}
}

// Value reads the property from the parent's current value.
func (r *PathReference) Value() any {
	return property(r.parent.Value(), r.key)
}

// Tag derives from the parent: if the parent is unchanged, so is the path.
func (r *PathReference) Tag() Tag { return r.parent.Tag() }

// Get derives a grandchild path reference.
func (r *PathReference) Get(key string) Reference {
	return &PathReference{parent: r, key: key}
}

// Property resolves one step of a path against an arbitrary host value,
// using the same lookup rules path references use.
func Property(base any, key string) any {
	return property(base, key)
}

// property resolves one step of a path against an arbitrary host value.
// Maps are indexed by key; structs (and pointers to structs) are read by
// exported field name, falling back to a case-insensitive match so hosts
// can expose lowerCamel template paths over Go fields. Anything else, and
// any absent key, yields nil.
func property(base any, key string) any {
	if base == nil {
		return nil
	}
	if m, ok := base.(map[string]any); ok {
		return m[key]
	}
	v := reflect.ValueOf(base)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil
		}
		mv := v.MapIndex(reflect.ValueOf(key))
		if !mv.IsValid() {
			return nil
		}
		return mv.Interface()
	case reflect.Struct:
		if f := v.FieldByName(key); f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
		f := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, key)
		})
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
		return nil
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Constant and derived references
// ---------------------------------------------------------------------------

// ConstReference holds a value that can never change.
type ConstReference struct {
	value any
}

// NewConstReference wraps an immutable value.
func NewConstReference(value any) *ConstReference {
	return &ConstReference{value: value}
}

// Value returns the constant value.
func (r *ConstReference) Value() any { return r.value }

// Tag returns the shared const tag.
func (r *ConstReference) Tag() Tag { return sharedConstTag }

// Get derives a path reference; the parent is constant but the path may
// still read through host mutation, so the child shares the const tag.
func (r *ConstReference) Get(key string) Reference {
	return &PathReference{parent: r, key: key}
}

// DerivedReference computes its value through a function. The tag is
// supplied by the creator and should combine the tags of every input the
// function reads; helpers are the main producer.
type DerivedReference struct {
	fn  func() any
	tag Tag
}

// NewDerivedReference wraps a compute function with its change tag.
func NewDerivedReference(tag Tag, fn func() any) *DerivedReference {
	return &DerivedReference{fn: fn, tag: tag}
}

// Value computes the derived value.
func (r *DerivedReference) Value() any { return r.fn() }

// Tag returns the creator-supplied tag.
func (r *DerivedReference) Tag() Tag { return r.tag }

// Get derives a path reference.
func (r *DerivedReference) Get(key string) Reference {
	return &PathReference{parent: r, key: key}
}

// Undefined returns the reference to the absent value.
func Undefined() Reference { return undefinedRef }

var undefinedRef = NewConstReference(nil)

// ConditionalReference derives a boolean from an inner reference using
// template truthiness.
type ConditionalReference struct {
	inner Reference
}

// NewConditionalReference wraps inner in a truthiness test.
func NewConditionalReference(inner Reference) *ConditionalReference {
	return &ConditionalReference{inner: inner}
}

// Value returns the truthiness of the inner value as a bool.
func (r *ConditionalReference) Value() any { return Truthy(r.inner.Value()) }

// Bool is Value without the boxing.
func (r *ConditionalReference) Bool() bool { return Truthy(r.inner.Value()) }

// Tag derives from the inner reference.
func (r *ConditionalReference) Tag() Tag { return r.inner.Tag() }

// Truthy implements template truthiness: nil, false, empty strings, zero
// numbers and empty slices/arrays/maps are false, everything else is true.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
