package template

import "fmt"

// ---------------------------------------------------------------------------
// Builder: programmatic template construction
// ---------------------------------------------------------------------------

// Builder assembles a compiled Template. It stands in for the external
// template compiler: hosts and tests describe the statement list directly
// and the builder takes care of symbol allocation, block nesting and
// built-in refinement.
type Builder struct {
	symbols *SymbolTable
	frames  [][]Statement
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		symbols: NewSymbolTable(),
		frames:  [][]Statement{nil},
	}
}

func (b *Builder) emit(stmt Statement) *Builder {
	top := len(b.frames) - 1
	b.frames[top] = append(b.frames[top], stmt)
	return b
}

func (b *Builder) pushFrame() {
	b.frames = append(b.frames, nil)
}

func (b *Builder) popFrame() []Statement {
	top := len(b.frames) - 1
	stmts := b.frames[top]
	b.frames = b.frames[:top]
	return stmts
}

// Template finalizes the builder. Unclosed blocks are a programmer error.
func (b *Builder) Template() *Template {
	if len(b.frames) != 1 {
		panic(fmt.Sprintf("template: %d unclosed block frames", len(b.frames)-1))
	}
	return &Template{Statements: b.frames[0], Symbols: b.symbols}
}

// ---------------------------------------------------------------------------
// Content statements
// ---------------------------------------------------------------------------

// Text appends literal text.
func (b *Builder) Text(content string) *Builder {
	return b.emit(&Text{Content: content})
}

// Comment appends a comment node.
func (b *Builder) Comment(content string) *Builder {
	return b.emit(&Comment{Content: content})
}

// OpenElement opens an element in the default namespace.
func (b *Builder) OpenElement(tag string) *Builder {
	return b.emit(&OpenElement{Tag: tag})
}

// OpenElementNS opens an element in an explicit namespace.
func (b *Builder) OpenElementNS(tag, namespace string) *Builder {
	return b.emit(&OpenElement{Tag: tag, Namespace: namespace})
}

// StaticAttr sets a compile-time attribute on the open element.
func (b *Builder) StaticAttr(name, value string) *Builder {
	return b.emit(&StaticAttr{Name: name, Value: value})
}

// DynamicAttr binds an attribute to an expression.
func (b *Builder) DynamicAttr(name string, value Expression) *Builder {
	return b.emit(&DynamicAttr{Name: name, Value: value})
}

// TrustingAttr binds an attribute without sanitization.
func (b *Builder) TrustingAttr(name string, value Expression) *Builder {
	return b.emit(&DynamicAttr{Name: name, Value: value, Trusting: true})
}

// DynamicAttrNS binds a namespaced attribute to an expression.
func (b *Builder) DynamicAttrNS(name, namespace string, value Expression) *Builder {
	return b.emit(&DynamicAttr{Name: name, Value: value, Namespace: namespace})
}

// FlushElement ends the open element's attribute section.
func (b *Builder) FlushElement() *Builder {
	return b.emit(&FlushElement{})
}

// CloseElement closes the innermost element.
func (b *Builder) CloseElement() *Builder {
	return b.emit(&CloseElement{})
}

// Append appends escaped dynamic content.
func (b *Builder) Append(value Expression) *Builder {
	return b.emit(&Append{Value: value})
}

// TrustingAppend appends dynamic content as markup.
func (b *Builder) TrustingAppend(value Expression) *Builder {
	return b.emit(&Append{Value: value, Trusting: true})
}

// Modifier schedules an element modifier on the open element.
func (b *Builder) Modifier(name string, args ...Expression) *Builder {
	return b.emit(&Modifier{Name: name, Args: args})
}

// Yield invokes the block bound at symbol.
func (b *Builder) Yield(symbol int, args ...Expression) *Builder {
	return b.emit(&Yield{Symbol: symbol, Args: args})
}

// Partial renders the template resolved from the name expression.
func (b *Builder) Partial(name Expression) *Builder {
	return b.emit(&Partial{Name: name})
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

// BlockOptions carries the pieces of a generic block invocation.
type BlockOptions struct {
	Args   []Expression
	Named  map[string]Expression
	Params []string
}

// Block emits a block statement, building the default and optional inverse
// bodies through callbacks. The statement is refined before it is emitted,
// so built-in names compile to their specialized forms here, exactly as the
// external compiler would.
func (b *Builder) Block(path []string, opts BlockOptions, body func(params []int), inverse func()) *Builder {
	stmt := &Block{Path: path, Args: opts.Args, Named: opts.Named}

	if body != nil {
		var params []int
		for _, name := range opts.Params {
			params = append(params, b.symbols.Allocate(name))
		}
		b.pushFrame()
		body(params)
		stmt.Default = &InlineBlock{Statements: b.popFrame(), Params: params}
	}
	if inverse != nil {
		b.pushFrame()
		inverse()
		stmt.Inverse = &InlineBlock{Statements: b.popFrame()}
	}

	return b.emit(Refine(stmt))
}

// If emits an if block.
func (b *Builder) If(cond Expression, body func(), inverse func()) *Builder {
	var wrapped func([]int)
	if body != nil {
		wrapped = func([]int) { body() }
	}
	return b.Block([]string{"if"}, BlockOptions{Args: []Expression{cond}}, wrapped, inverse)
}

// Unless emits an unless block.
func (b *Builder) Unless(cond Expression, body func(), inverse func()) *Builder {
	var wrapped func([]int)
	if body != nil {
		wrapped = func([]int) { body() }
	}
	return b.Block([]string{"unless"}, BlockOptions{Args: []Expression{cond}}, wrapped, inverse)
}

// With emits a with block binding one block parameter.
func (b *Builder) With(value Expression, param string, body func(sym int), inverse func()) *Builder {
	return b.Block([]string{"with"}, BlockOptions{
		Args:   []Expression{value},
		Params: []string{param},
	}, func(params []int) { body(params[0]) }, inverse)
}

// Each emits an each block binding one block parameter per item. key selects
// the item property used for node reuse; pass "" for positional identity.
func (b *Builder) Each(items Expression, key, param string, body func(sym int), inverse func()) *Builder {
	opts := BlockOptions{
		Args:   []Expression{items},
		Params: []string{param},
	}
	if key != "" {
		opts.Named = map[string]Expression{"key": &Literal{Value: key}}
	}
	return b.Block([]string{"each"}, opts, func(params []int) { body(params[0]) }, inverse)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Self returns a path expression rooted at self.
func (b *Builder) Self(path ...string) Expression {
	return &GetPath{Symbol: SelfSymbol, Path: path}
}

// Get returns a path expression rooted at a bound symbol.
func (b *Builder) Get(symbol int, path ...string) Expression {
	if len(path) == 0 {
		return &GetSymbol{Symbol: symbol}
	}
	return &GetPath{Symbol: symbol, Path: path}
}

// Lit returns a literal expression.
func (b *Builder) Lit(value any) Expression {
	return &Literal{Value: value}
}

// Helper returns a helper call expression.
func (b *Builder) Helper(name string, args ...Expression) Expression {
	return &HelperCall{Name: name, Args: args}
}

// Concat returns a string-concatenation expression.
func (b *Builder) Concat(parts ...Expression) Expression {
	return &Concat{Parts: parts}
}

// Symbols exposes the table for hosts that pre-allocate bindings.
func (b *Builder) Symbols() *SymbolTable { return b.symbols }
