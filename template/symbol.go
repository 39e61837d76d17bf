package template

import "fmt"

// SelfSymbol is the slot every scope reserves for self.
const SelfSymbol = 0

// SymbolTable assigns stable integer symbols to the bindings of one
// compiled template. Symbols are allocated at compile time and never
// renumbered; the scope the engine builds from this table is sized exactly
// to Size.
type SymbolTable struct {
	size  int
	named map[string]int
}

// NewSymbolTable returns a table with only the self slot allocated.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{size: 1, named: make(map[string]int)}
}

// Allocate assigns the next free symbol to name. Allocating the same name
// twice is a compiler bug.
func (t *SymbolTable) Allocate(name string) int {
	if _, ok := t.named[name]; ok {
		panic(fmt.Sprintf("template: symbol %q allocated twice", name))
	}
	sym := t.size
	t.size++
	t.named[name] = sym
	return sym
}

// Lookup returns the symbol for name, if allocated.
func (t *SymbolTable) Lookup(name string) (int, bool) {
	sym, ok := t.named[name]
	return sym, ok
}

// Size returns the number of slots a scope for this template needs.
func (t *SymbolTable) Size() int { return t.size }

// names returns the allocation map, for wire encoding.
func (t *SymbolTable) names() map[string]int { return t.named }

// restoreSymbolTable rebuilds a table from its wire form.
func restoreSymbolTable(size int, named map[string]int) *SymbolTable {
	if named == nil {
		named = make(map[string]int)
	}
	if size < 1 {
		size = 1
	}
	return &SymbolTable{size: size, named: named}
}
