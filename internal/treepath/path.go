package treepath

import (
	"fmt"
	"strings"

	"github.com/roach88/simtree/internal/ir"
)

// Path is a parsed sequence of field names.
type Path []string

// Parse splits a dotted path. The empty string parses to the empty path,
// which addresses the record itself.
func Parse(s string) (Path, error) {
	if s == "" {
		return nil, nil
	}
	segs := strings.Split(s, ".")
	for i, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("path %q: empty segment at position %d", s, i)
		}
	}
	return Path(segs), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String joins the path back with dots.
func (p Path) String() string { return strings.Join(p, ".") }

// Validate checks every segment of p against the declared fields of rt,
// descending through record, list and union types. A segment is valid when
// at least one record type reachable at that level declares it.
func (p Path) Validate(rt *ir.RecordType) error {
	_, err := p.resolve(rt)
	return err
}

// resolve returns the declared types of the final segment across every
// record type reachable along p.
func (p Path) resolve(rt *ir.RecordType) ([]ir.Type, error) {
	level := []*ir.RecordType{rt}
	owner := rt.Name
	var next []ir.Type
	for i, seg := range p {
		next = next[:0:0]
		for _, r := range level {
			if f, ok := r.Field(seg); ok {
				next = append(next, f.Type)
			}
		}
		if len(next) == 0 {
			return nil, ir.NewUnknownFieldError(owner, p[:i+1].String())
		}
		level = level[:0:0]
		for _, t := range next {
			level = append(level, descendable(t)...)
		}
		if len(level) > 0 {
			owner = level[0].Name
		} else {
			owner = next[0].String()
		}
	}
	return next, nil
}

// acceptsList reports whether a field of type t can hold a list value.
func acceptsList(t ir.Type) bool {
	switch tt := t.(type) {
	case ir.SeqType:
		return true
	case ir.UnionType:
		for _, v := range tt.Variants {
			if acceptsList(v) {
				return true
			}
		}
	}
	return false
}

// descendable returns the record types a path can continue into from a field
// of type t.
func descendable(t ir.Type) []*ir.RecordType {
	switch tt := t.(type) {
	case *ir.RecordType:
		return []*ir.RecordType{tt}
	case ir.SeqType:
		return descendable(tt.Elem)
	case ir.UnionType:
		var out []*ir.RecordType
		for _, v := range tt.Variants {
			out = append(out, descendable(v)...)
		}
		return out
	}
	return nil
}
