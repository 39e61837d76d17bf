package template

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Wire format: canonical CBOR encoding of compiled templates
// ---------------------------------------------------------------------------

// ErrUnknownKind indicates wire input naming a statement or expression kind
// this engine does not implement.
var ErrUnknownKind = errors.New("unknown wire kind")

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("template: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	// Literals round-trip as int64 rather than splitting into uint64/int64
	// by sign.
	dm, err := cbor.DecOptions{IntDec: cbor.IntDecConvertSigned}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("template: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// Statement kinds on the wire.
const (
	wkText         = "text"
	wkComment      = "comment"
	wkOpenElement  = "open"
	wkFlushElement = "flush"
	wkCloseElement = "close"
	wkStaticAttr   = "sattr"
	wkDynamicAttr  = "dattr"
	wkAppend       = "append"
	wkModifier     = "modifier"
	wkBlock        = "block"
	wkYield        = "yield"
	wkPartial      = "partial"
	wkIf           = "if"
	wkUnless       = "unless"
	wkWith         = "with"
	wkEach         = "each"
)

// Expression kinds on the wire.
const (
	wkUndefined = "undef"
	wkLiteral   = "lit"
	wkGetSymbol = "sym"
	wkGetPath   = "path"
	wkHelper    = "helper"
	wkConcat    = "concat"
	wkHasBlock  = "hasblock"
)

type wireTemplate struct {
	Statements []wireStatement `cbor:"s"`
	SymbolSize int             `cbor:"z"`
	Symbols    map[string]int  `cbor:"y,omitempty"`
}

type wireStatement struct {
	Kind      string                    `cbor:"k"`
	Text      string                    `cbor:"t,omitempty"`
	Name      string                    `cbor:"n,omitempty"`
	Namespace string                    `cbor:"ns,omitempty"`
	Static    string                    `cbor:"sv,omitempty"`
	Trusting  bool                      `cbor:"tr,omitempty"`
	Value     *wireExpression           `cbor:"v,omitempty"`
	Path      []string                  `cbor:"p,omitempty"`
	Args      []wireExpression          `cbor:"a,omitempty"`
	Named     map[string]wireExpression `cbor:"m,omitempty"`
	Default   *wireBlock                `cbor:"d,omitempty"`
	Inverse   *wireBlock                `cbor:"i,omitempty"`
	Symbol    int                       `cbor:"sy,omitempty"`
	Key       string                    `cbor:"ky,omitempty"`
}

type wireBlock struct {
	Statements []wireStatement `cbor:"s"`
	Params     []int           `cbor:"p,omitempty"`
}

type wireExpression struct {
	Kind   string           `cbor:"k"`
	Value  any              `cbor:"l,omitempty"`
	Symbol int              `cbor:"sy,omitempty"`
	Path   []string         `cbor:"p,omitempty"`
	Name   string           `cbor:"n,omitempty"`
	Args   []wireExpression `cbor:"a,omitempty"`
	Named  map[string]wireExpression `cbor:"m,omitempty"`
}

// EncodeTemplate serializes a compiled template to canonical CBOR bytes.
// Encoding is deterministic: equal templates produce equal bytes, which the
// content-addressed store relies on.
func EncodeTemplate(t *Template) ([]byte, error) {
	wt := wireTemplate{
		Statements: encodeStatements(t.Statements),
		SymbolSize: t.Symbols.Size(),
		Symbols:    t.Symbols.names(),
	}
	data, err := cborEncMode.Marshal(&wt)
	if err != nil {
		return nil, fmt.Errorf("template: encode: %w", err)
	}
	return data, nil
}

// DecodeTemplate deserializes a compiled template from CBOR bytes.
func DecodeTemplate(data []byte) (*Template, error) {
	var wt wireTemplate
	if err := cborDecMode.Unmarshal(data, &wt); err != nil {
		return nil, fmt.Errorf("template: decode: %w", err)
	}
	stmts, err := decodeStatements(wt.Statements)
	if err != nil {
		return nil, err
	}
	return &Template{
		Statements: stmts,
		Symbols:    restoreSymbolTable(wt.SymbolSize, wt.Symbols),
	}, nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func encodeStatements(stmts []Statement) []wireStatement {
	out := make([]wireStatement, len(stmts))
	for i, s := range stmts {
		out[i] = encodeStatement(s)
	}
	return out
}

func encodeBlock(b *InlineBlock) *wireBlock {
	if b == nil {
		return nil
	}
	return &wireBlock{Statements: encodeStatements(b.Statements), Params: b.Params}
}

func encodeStatement(s Statement) wireStatement {
	switch s := s.(type) {
	case *Text:
		return wireStatement{Kind: wkText, Text: s.Content}
	case *Comment:
		return wireStatement{Kind: wkComment, Text: s.Content}
	case *OpenElement:
		return wireStatement{Kind: wkOpenElement, Name: s.Tag, Namespace: s.Namespace}
	case *FlushElement:
		return wireStatement{Kind: wkFlushElement}
	case *CloseElement:
		return wireStatement{Kind: wkCloseElement}
	case *StaticAttr:
		return wireStatement{Kind: wkStaticAttr, Name: s.Name, Static: s.Value, Namespace: s.Namespace}
	case *DynamicAttr:
		v := encodeExpression(s.Value)
		return wireStatement{Kind: wkDynamicAttr, Name: s.Name, Value: &v, Namespace: s.Namespace, Trusting: s.Trusting}
	case *Append:
		v := encodeExpression(s.Value)
		return wireStatement{Kind: wkAppend, Value: &v, Trusting: s.Trusting}
	case *Modifier:
		return wireStatement{Kind: wkModifier, Name: s.Name, Args: encodeExpressions(s.Args)}
	case *Block:
		return wireStatement{
			Kind:    wkBlock,
			Path:    s.Path,
			Args:    encodeExpressions(s.Args),
			Named:   encodeNamed(s.Named),
			Default: encodeBlock(s.Default),
			Inverse: encodeBlock(s.Inverse),
		}
	case *Yield:
		return wireStatement{Kind: wkYield, Symbol: s.Symbol, Args: encodeExpressions(s.Args)}
	case *Partial:
		v := encodeExpression(s.Name)
		return wireStatement{Kind: wkPartial, Value: &v}
	case *IfBlock:
		v := encodeExpression(s.Condition)
		return wireStatement{Kind: wkIf, Value: &v, Default: encodeBlock(s.Default), Inverse: encodeBlock(s.Inverse)}
	case *UnlessBlock:
		v := encodeExpression(s.Condition)
		return wireStatement{Kind: wkUnless, Value: &v, Default: encodeBlock(s.Default), Inverse: encodeBlock(s.Inverse)}
	case *WithBlock:
		v := encodeExpression(s.Value)
		return wireStatement{Kind: wkWith, Value: &v, Default: encodeBlock(s.Default), Inverse: encodeBlock(s.Inverse)}
	case *EachBlock:
		v := encodeExpression(s.Items)
		return wireStatement{Kind: wkEach, Value: &v, Key: s.Key, Default: encodeBlock(s.Default), Inverse: encodeBlock(s.Inverse)}
	default:
		panic(fmt.Sprintf("template: cannot encode statement %T", s))
	}
}

func encodeExpressions(exprs []Expression) []wireExpression {
	if len(exprs) == 0 {
		return nil
	}
	out := make([]wireExpression, len(exprs))
	for i, e := range exprs {
		out[i] = encodeExpression(e)
	}
	return out
}

func encodeNamed(named map[string]Expression) map[string]wireExpression {
	if len(named) == 0 {
		return nil
	}
	out := make(map[string]wireExpression, len(named))
	for k, e := range named {
		out[k] = encodeExpression(e)
	}
	return out
}

func encodeExpression(e Expression) wireExpression {
	switch e := e.(type) {
	case *Undefined:
		return wireExpression{Kind: wkUndefined}
	case *Literal:
		return wireExpression{Kind: wkLiteral, Value: e.Value}
	case *GetSymbol:
		return wireExpression{Kind: wkGetSymbol, Symbol: e.Symbol}
	case *GetPath:
		return wireExpression{Kind: wkGetPath, Symbol: e.Symbol, Path: e.Path}
	case *HelperCall:
		return wireExpression{Kind: wkHelper, Name: e.Name, Args: encodeExpressions(e.Args), Named: encodeNamed(e.Named)}
	case *Concat:
		return wireExpression{Kind: wkConcat, Args: encodeExpressions(e.Parts)}
	case *HasBlock:
		return wireExpression{Kind: wkHasBlock, Symbol: e.Symbol}
	default:
		panic(fmt.Sprintf("template: cannot encode expression %T", e))
	}
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

func decodeStatements(ws []wireStatement) ([]Statement, error) {
	if ws == nil {
		return nil, nil
	}
	out := make([]Statement, len(ws))
	for i := range ws {
		s, err := decodeStatement(&ws[i])
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func decodeBlock(wb *wireBlock) (*InlineBlock, error) {
	if wb == nil {
		return nil, nil
	}
	stmts, err := decodeStatements(wb.Statements)
	if err != nil {
		return nil, err
	}
	return &InlineBlock{Statements: stmts, Params: wb.Params}, nil
}

func decodeStatement(ws *wireStatement) (Statement, error) {
	switch ws.Kind {
	case wkText:
		return &Text{Content: ws.Text}, nil
	case wkComment:
		return &Comment{Content: ws.Text}, nil
	case wkOpenElement:
		return &OpenElement{Tag: ws.Name, Namespace: ws.Namespace}, nil
	case wkFlushElement:
		return &FlushElement{}, nil
	case wkCloseElement:
		return &CloseElement{}, nil
	case wkStaticAttr:
		return &StaticAttr{Name: ws.Name, Value: ws.Static, Namespace: ws.Namespace}, nil
	case wkDynamicAttr:
		v, err := decodeExpressionPtr(ws.Value)
		if err != nil {
			return nil, err
		}
		return &DynamicAttr{Name: ws.Name, Value: v, Namespace: ws.Namespace, Trusting: ws.Trusting}, nil
	case wkAppend:
		v, err := decodeExpressionPtr(ws.Value)
		if err != nil {
			return nil, err
		}
		return &Append{Value: v, Trusting: ws.Trusting}, nil
	case wkModifier:
		args, err := decodeExpressions(ws.Args)
		if err != nil {
			return nil, err
		}
		return &Modifier{Name: ws.Name, Args: args}, nil
	case wkBlock:
		args, err := decodeExpressions(ws.Args)
		if err != nil {
			return nil, err
		}
		named, err := decodeNamed(ws.Named)
		if err != nil {
			return nil, err
		}
		def, err := decodeBlock(ws.Default)
		if err != nil {
			return nil, err
		}
		inv, err := decodeBlock(ws.Inverse)
		if err != nil {
			return nil, err
		}
		return &Block{Path: ws.Path, Args: args, Named: named, Default: def, Inverse: inv}, nil
	case wkYield:
		args, err := decodeExpressions(ws.Args)
		if err != nil {
			return nil, err
		}
		return &Yield{Symbol: ws.Symbol, Args: args}, nil
	case wkPartial:
		v, err := decodeExpressionPtr(ws.Value)
		if err != nil {
			return nil, err
		}
		return &Partial{Name: v}, nil
	case wkIf, wkUnless, wkWith, wkEach:
		v, err := decodeExpressionPtr(ws.Value)
		if err != nil {
			return nil, err
		}
		def, err := decodeBlock(ws.Default)
		if err != nil {
			return nil, err
		}
		inv, err := decodeBlock(ws.Inverse)
		if err != nil {
			return nil, err
		}
		switch ws.Kind {
		case wkIf:
			return &IfBlock{Condition: v, Default: def, Inverse: inv}, nil
		case wkUnless:
			return &UnlessBlock{Condition: v, Default: def, Inverse: inv}, nil
		case wkWith:
			return &WithBlock{Value: v, Default: def, Inverse: inv}, nil
		default:
			return &EachBlock{Items: v, Key: ws.Key, Default: def, Inverse: inv}, nil
		}
	default:
		return nil, fmt.Errorf("template: statement: %w: %q", ErrUnknownKind, ws.Kind)
	}
}

func decodeExpressions(ws []wireExpression) ([]Expression, error) {
	if ws == nil {
		return nil, nil
	}
	out := make([]Expression, len(ws))
	for i := range ws {
		e, err := decodeExpression(&ws[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decodeNamed(ws map[string]wireExpression) (map[string]Expression, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	out := make(map[string]Expression, len(ws))
	for k := range ws {
		we := ws[k]
		e, err := decodeExpression(&we)
		if err != nil {
			return nil, err
		}
		out[k] = e
	}
	return out, nil
}

func decodeExpressionPtr(we *wireExpression) (Expression, error) {
	if we == nil {
		return &Undefined{}, nil
	}
	return decodeExpression(we)
}

func decodeExpression(we *wireExpression) (Expression, error) {
	switch we.Kind {
	case wkUndefined:
		return &Undefined{}, nil
	case wkLiteral:
		return &Literal{Value: we.Value}, nil
	case wkGetSymbol:
		return &GetSymbol{Symbol: we.Symbol}, nil
	case wkGetPath:
		return &GetPath{Symbol: we.Symbol, Path: we.Path}, nil
	case wkHelper:
		args, err := decodeExpressions(we.Args)
		if err != nil {
			return nil, err
		}
		named, err := decodeNamed(we.Named)
		if err != nil {
			return nil, err
		}
		return &HelperCall{Name: we.Name, Args: args, Named: named}, nil
	case wkConcat:
		parts, err := decodeExpressions(we.Args)
		if err != nil {
			return nil, err
		}
		return &Concat{Parts: parts}, nil
	case wkHasBlock:
		return &HasBlock{Symbol: we.Symbol}, nil
	default:
		return nil, fmt.Errorf("template: expression: %w: %q", ErrUnknownKind, we.Kind)
	}
}
