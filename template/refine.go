package template

// Built-in block keywords. A block whose head is a single bare identifier
// matching one of these always resolves to the built-in, even when a host
// helper of the same name is registered; built-ins are not overridable
// through the block path.
const (
	keywordIf     = "if"
	keywordUnless = "unless"
	keywordWith   = "with"
	keywordEach   = "each"
)

// Refine rewrites generic parsed statements into specialized control-flow
// statements. Only simple blocks (single-identifier head) with a body are
// candidates; everything else passes through unchanged for generic
// resolution by the host's helper/component/modifier lookup chain.
func Refine(stmt Statement) Statement {
	block, ok := stmt.(*Block)
	if !ok || !isSimpleBlock(block) {
		return stmt
	}

	switch block.Path[0] {
	case keywordIf:
		return &IfBlock{
			Condition: firstArg(block),
			Default:   block.Default,
			Inverse:   block.Inverse,
		}
	case keywordUnless:
		return &UnlessBlock{
			Condition: firstArg(block),
			Default:   block.Default,
			Inverse:   block.Inverse,
		}
	case keywordWith:
		return &WithBlock{
			Value:   firstArg(block),
			Default: block.Default,
			Inverse: block.Inverse,
		}
	case keywordEach:
		return &EachBlock{
			Items:   firstArg(block),
			Key:     namedKey(block),
			Default: block.Default,
			Inverse: block.Inverse,
		}
	default:
		return stmt
	}
}

// isSimpleBlock reports whether the block has a bare single-identifier head
// and an actual body to render.
func isSimpleBlock(b *Block) bool {
	return len(b.Path) == 1 && b.Default != nil
}

func firstArg(b *Block) Expression {
	if len(b.Args) == 0 {
		return &Undefined{}
	}
	return b.Args[0]
}

// namedKey extracts the literal key="..." argument of an each block, if any.
func namedKey(b *Block) string {
	expr, ok := b.Named["key"]
	if !ok {
		return ""
	}
	lit, ok := expr.(*Literal)
	if !ok {
		return ""
	}
	s, _ := lit.Value.(string)
	return s
}
