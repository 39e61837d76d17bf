// Package template defines the compiled form a rendering engine consumes: a
// statement list plus a symbol table. The front-end that turns template text
// into this form is an external collaborator; hosts and tests construct
// programs through the Builder.
package template

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Statement is the interface implemented by all compiled statements.
type Statement interface {
	stmt() // marker method
}

// Text appends literal text content.
type Text struct {
	Content string
}

// Comment appends a literal comment node.
type Comment struct {
	Content string
}

// OpenElement begins a new element. Attribute statements follow until
// FlushElement.
type OpenElement struct {
	Tag       string
	Namespace string
}

// FlushElement ends the attribute section of the open element.
type FlushElement struct{}

// CloseElement closes the innermost open element.
type CloseElement struct{}

// StaticAttr sets an attribute whose value is known at compile time.
type StaticAttr struct {
	Name      string
	Value     string
	Namespace string
}

// DynamicAttr binds an attribute to an expression. Trusting skips value
// sanitization for security-sensitive attributes.
type DynamicAttr struct {
	Name      string
	Value     Expression
	Namespace string
	Trusting  bool
}

// Append appends dynamic content. Trusting content is inserted as markup,
// untrusting content as text.
type Append struct {
	Value    Expression
	Trusting bool
}

// Modifier schedules an element modifier install on the open element.
type Modifier struct {
	Name string
	Args []Expression
}

// Block is a generic block invocation as parsed: a head path, positional
// arguments, named arguments and up to two inline blocks. Built-in control
// flow is refined out of this shape before evaluation; what remains is
// resolved through the host's block lookup.
type Block struct {
	Path    []string
	Args    []Expression
	Named   map[string]Expression
	Default *InlineBlock
	Inverse *InlineBlock
}

// Yield invokes the block bound at the given symbol with arguments.
type Yield struct {
	Symbol int
	Args   []Expression
}

// Partial renders another template, resolved by name at runtime, with the
// current scope reachable through the caller-scope chain.
type Partial struct {
	Name Expression
}

// InlineBlock is the compiled body of a block: its statements plus the
// symbols its block parameters bind to.
type InlineBlock struct {
	Statements []Statement
	Params     []int
}

// ---------------------------------------------------------------------------
// Refined control-flow statements
// ---------------------------------------------------------------------------

// IfBlock renders Default when Condition is truthy, Inverse otherwise.
type IfBlock struct {
	Condition Expression
	Default   *InlineBlock
	Inverse   *InlineBlock
}

// UnlessBlock renders Default when Condition is falsy, Inverse otherwise.
type UnlessBlock struct {
	Condition Expression
	Default   *InlineBlock
	Inverse   *InlineBlock
}

// WithBlock binds Value to the block parameter and renders Default when the
// value is truthy, Inverse otherwise.
type WithBlock struct {
	Value   Expression
	Default *InlineBlock
	Inverse *InlineBlock
}

// EachBlock renders Default once per item. Key names the item property used
// for node reuse across rerenders; empty means positional identity.
type EachBlock struct {
	Items   Expression
	Key     string
	Default *InlineBlock
	Inverse *InlineBlock
}

func (*Text) stmt()         {}
func (*Comment) stmt()      {}
func (*OpenElement) stmt()  {}
func (*FlushElement) stmt() {}
func (*CloseElement) stmt() {}
func (*StaticAttr) stmt()   {}
func (*DynamicAttr) stmt()  {}
func (*Append) stmt()       {}
func (*Modifier) stmt()     {}
func (*Block) stmt()        {}
func (*Yield) stmt()        {}
func (*Partial) stmt()      {}
func (*IfBlock) stmt()      {}
func (*UnlessBlock) stmt()  {}
func (*WithBlock) stmt()    {}
func (*EachBlock) stmt()    {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Expression is the interface implemented by all compiled expressions.
type Expression interface {
	expr() // marker method
}

// Undefined evaluates to the absent value.
type Undefined struct{}

// Literal evaluates to a compile-time constant.
type Literal struct {
	Value any
}

// GetSymbol reads a scope slot directly.
type GetSymbol struct {
	Symbol int
}

// GetPath reads a scope slot and walks a property path from it. Symbol 0 is
// always self.
type GetPath struct {
	Symbol int
	Path   []string
}

// HelperCall invokes a host helper with evaluated arguments.
type HelperCall struct {
	Name  string
	Args  []Expression
	Named map[string]Expression
}

// Concat joins the stringified values of its parts.
type Concat struct {
	Parts []Expression
}

// HasBlock evaluates to whether a block is bound at the given symbol.
type HasBlock struct {
	Symbol int
}

func (*Undefined) expr()  {}
func (*Literal) expr()    {}
func (*GetSymbol) expr()  {}
func (*GetPath) expr()    {}
func (*HelperCall) expr() {}
func (*Concat) expr()     {}
func (*HasBlock) expr()   {}

// ---------------------------------------------------------------------------
// Template
// ---------------------------------------------------------------------------

// Template is a compiled statement list plus its symbol table.
type Template struct {
	Statements []Statement
	Symbols    *SymbolTable
}
