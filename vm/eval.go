package vm

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bekzod/glimmer-vm/reference"
	"github.com/bekzod/glimmer-vm/template"
)

// ---------------------------------------------------------------------------
// Expression evaluation
// ---------------------------------------------------------------------------

// evaluate turns a compiled expression into a reference. Evaluation is
// cheap and pure; the returned reference reads the live value on demand.
func evaluate(env *Environment, scope *Scope, e template.Expression) reference.Reference {
	switch e := e.(type) {
	case *template.Undefined:
		return reference.Undefined()
	case *template.Literal:
		return reference.NewConstReference(e.Value)
	case *template.GetSymbol:
		return scope.GetSymbol(e.Symbol)
	case *template.GetPath:
		ref := scope.GetSymbol(e.Symbol)
		for _, key := range e.Path {
			ref = reference.NewPathReference(ref, key)
		}
		return ref
	case *template.HelperCall:
		helper, ok := env.Helper(e.Name)
		if !ok {
			panic(fmt.Sprintf("vm: unknown helper %q", e.Name))
		}
		return helper(evaluateArgs(env, scope, e.Args, e.Named))
	case *template.Concat:
		parts := make([]reference.Reference, len(e.Parts))
		for i, p := range e.Parts {
			parts[i] = evaluate(env, scope, p)
		}
		return newConcatReference(parts)
	case *template.HasBlock:
		return reference.NewConstReference(scope.GetBlock(e.Symbol) != nil)
	default:
		panic(fmt.Sprintf("vm: cannot evaluate expression %T", e))
	}
}

// evaluateArgs evaluates positional and named arguments into references.
func evaluateArgs(env *Environment, scope *Scope, args []template.Expression, named map[string]template.Expression) *EvaluatedArgs {
	out := &EvaluatedArgs{}
	for _, a := range args {
		out.Positional = append(out.Positional, evaluate(env, scope, a))
	}
	if len(named) > 0 {
		out.Named = make(map[string]reference.Reference, len(named))
		for k, a := range named {
			out.Named[k] = evaluate(env, scope, a)
		}
	}
	return out
}

// contentString renders a value as text content: absent values render as
// the empty string.
func contentString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// concatReference joins the stringified values of its parts; its tag
// derives from every part.
type concatReference struct {
	parts []reference.Reference
	tag   reference.Tag
}

func newConcatReference(parts []reference.Reference) *concatReference {
	tags := make([]reference.Tag, len(parts))
	for i, p := range parts {
		tags[i] = p.Tag()
	}
	return &concatReference{parts: parts, tag: reference.Combine(tags...)}
}

func (r *concatReference) Value() any {
	var sb strings.Builder
	for _, p := range r.parts {
		sb.WriteString(contentString(p.Value()))
	}
	return sb.String()
}

func (r *concatReference) Tag() reference.Tag { return r.tag }

// toSlice normalizes an iterable host value to a slice of items.
func toSlice(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
