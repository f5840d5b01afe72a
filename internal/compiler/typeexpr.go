package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/simtree/internal/array"
	"github.com/roach88/simtree/internal/ir"
)

// typeExpr is a parsed field type expression.
//
//	expr    := unary ('|' unary)*
//	unary   := '?' unary | primary
//	primary := ident ['<' expr '>'] | ident '(' ident (',' ident)* ')' | '(' expr ')'
type typeExpr struct {
	name     string      // identifier of a named, generic or call form
	elem     *typeExpr   // list<T>, map<T>, array<dtype>, ?T
	args     []string    // enum(...), opaque(...)
	call     bool        // args were given in parentheses
	variants []*typeExpr // T | U
	optional bool        // ?T, with the operand in elem
}

// refs returns every identifier that must resolve to a record type.
func (e *typeExpr) refs() []string {
	switch {
	case len(e.variants) > 0:
		var out []string
		for _, v := range e.variants {
			out = append(out, v.refs()...)
		}
		return out
	case e.optional:
		return e.elem.refs()
	case e.name == "array":
		return nil
	case builtinTypes[e.name]:
		if e.elem != nil {
			return e.elem.refs()
		}
		return nil
	}
	return []string{e.name}
}

var builtinTypes = map[string]bool{
	"array": true, "host_array": true,
	"bool": true, "int": true, "float": true, "string": true, "null": true,
	"enum": true, "opaque": true, "list": true, "map": true,
}

// parseTypeExpr parses a type expression without resolving record names.
func parseTypeExpr(s string) (*typeExpr, error) {
	p := &typeParser{src: s}
	p.next()
	e, err := p.union()
	if err != nil {
		return nil, err
	}
	if p.tok != tokEOF {
		return nil, p.errorf("unexpected %q", p.lit)
	}
	return e, nil
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokPunct
)

type typeParser struct {
	src string
	pos int // offset after the current token
	off int // offset of the current token
	tok tokKind
	lit string
}

func (p *typeParser) next() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
	p.off = p.pos
	if p.pos >= len(p.src) {
		p.tok, p.lit = tokEOF, ""
		return
	}
	c := p.src[p.pos]
	if isIdentByte(c, true) {
		start := p.pos
		for p.pos < len(p.src) && isIdentByte(p.src[p.pos], false) {
			p.pos++
		}
		p.tok, p.lit = tokIdent, p.src[start:p.pos]
		return
	}
	p.pos++
	p.tok, p.lit = tokPunct, string(c)
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		return true
	case '0' <= c && c <= '9':
		return !first
	}
	return false
}

func (p *typeParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at offset %d: %s", p.src, p.off, fmt.Sprintf(format, args...))
}

func (p *typeParser) expect(punct string) error {
	if p.tok != tokPunct || p.lit != punct {
		if p.tok == tokEOF {
			return p.errorf("expected %q, got end of input", punct)
		}
		return p.errorf("expected %q, got %q", punct, p.lit)
	}
	p.next()
	return nil
}

func (p *typeParser) union() (*typeExpr, error) {
	first, err := p.unary()
	if err != nil {
		return nil, err
	}
	if p.tok != tokPunct || p.lit != "|" {
		return first, nil
	}
	u := &typeExpr{variants: []*typeExpr{first}}
	for p.tok == tokPunct && p.lit == "|" {
		p.next()
		v, err := p.unary()
		if err != nil {
			return nil, err
		}
		u.variants = append(u.variants, v)
	}
	return u, nil
}

func (p *typeParser) unary() (*typeExpr, error) {
	if p.tok == tokPunct && p.lit == "?" {
		p.next()
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &typeExpr{optional: true, elem: inner}, nil
	}
	return p.primary()
}

func (p *typeParser) primary() (*typeExpr, error) {
	switch {
	case p.tok == tokPunct && p.lit == "(":
		p.next()
		e, err := p.union()
		if err != nil {
			return nil, err
		}
		return e, p.expect(")")
	case p.tok != tokIdent:
		if p.tok == tokEOF {
			return nil, p.errorf("expected a type, got end of input")
		}
		return nil, p.errorf("expected a type, got %q", p.lit)
	}

	e := &typeExpr{name: p.lit}
	p.next()
	switch {
	case p.tok == tokPunct && p.lit == "<":
		p.next()
		elem, err := p.union()
		if err != nil {
			return nil, err
		}
		e.elem = elem
		return e, p.expect(">")
	case p.tok == tokPunct && p.lit == "(":
		p.next()
		e.call = true
		for {
			if p.tok != tokIdent {
				return nil, p.errorf("expected an identifier argument")
			}
			e.args = append(e.args, p.lit)
			p.next()
			if p.tok == tokPunct && p.lit == "," {
				p.next()
				continue
			}
			break
		}
		return e, p.expect(")")
	}
	return e, nil
}

// resolve converts e into an ir.Type. Record names are looked up in records;
// hint names enums declared inline.
func (e *typeExpr) resolve(records map[string]*ir.RecordType, hint string) (ir.Type, error) {
	switch {
	case len(e.variants) > 0:
		u := ir.UnionType{Variants: make([]ir.Type, len(e.variants))}
		for i, v := range e.variants {
			t, err := v.resolve(records, hint)
			if err != nil {
				return nil, err
			}
			u.Variants[i] = t
		}
		return u, nil
	case e.optional:
		t, err := e.elem.resolve(records, hint)
		if err != nil {
			return nil, err
		}
		return ir.Optional(t), nil
	}

	if e.name != "array" && e.name != "list" && e.name != "map" && e.elem != nil {
		return nil, fmt.Errorf("%s takes no type parameter", e.name)
	}
	if e.name != "enum" && e.name != "opaque" && e.call {
		return nil, fmt.Errorf("%s takes no arguments", e.name)
	}

	switch e.name {
	case "array":
		if e.elem == nil {
			return ir.ArrayType{}, nil
		}
		if e.elem.name == "" || e.elem.elem != nil || e.elem.call {
			return nil, fmt.Errorf("array parameter must be a dtype")
		}
		dt, err := array.ParseDType(e.elem.name)
		if err != nil {
			return nil, err
		}
		return ir.ArrayType{DType: dt}, nil
	case "host_array":
		return ir.HostArrayType{}, nil
	case "bool":
		return ir.BoolType, nil
	case "int":
		return ir.IntType, nil
	case "float":
		return ir.FloatType, nil
	case "string":
		return ir.StringType, nil
	case "null":
		return ir.NullType{}, nil
	case "enum":
		if len(e.args) == 0 {
			return nil, fmt.Errorf("enum needs at least one member")
		}
		return ir.EnumType{Name: hint, Values: e.args}, nil
	case "opaque":
		switch {
		case len(e.args) == 1:
			return ir.OpaqueType{Tag: e.args[0]}, nil
		case len(e.args) == 2 && e.args[1] == "hashable":
			return ir.OpaqueType{Tag: e.args[0], Hashable: true}, nil
		}
		return nil, fmt.Errorf("opaque takes a tag and an optional \"hashable\" flag")
	case "list", "map":
		if e.elem == nil {
			return nil, fmt.Errorf("%s needs an element type", e.name)
		}
		elem, err := e.elem.resolve(records, hint)
		if err != nil {
			return nil, err
		}
		if e.name == "list" {
			return ir.SeqType{Elem: elem}, nil
		}
		return ir.MapType{Elem: elem}, nil
	}

	rt, ok := records[e.name]
	if !ok {
		return nil, &unknownRefError{name: e.name}
	}
	return rt, nil
}

type unknownRefError struct{ name string }

func (e *unknownRefError) Error() string {
	return fmt.Sprintf("unknown record type %q", e.name)
}

// ParseType parses and resolves a single type expression against known
// record types.
func ParseType(expr string, records map[string]*ir.RecordType) (ir.Type, error) {
	e, err := parseTypeExpr(strings.TrimSpace(expr))
	if err != nil {
		return nil, err
	}
	return e.resolve(records, "")
}
