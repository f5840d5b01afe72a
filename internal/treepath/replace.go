package treepath

import (
	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/registry"
)

// Update is one entry of a batched replacement. When Each is set, Value
// must be a list holding one value per element of the first list the path
// crosses.
type Update struct {
	Path  string
	Value ir.Value
	Each  bool
}

// Replacer applies path replacements through a registry's Replace, so every
// record it rebuilds must be registered.
type Replacer struct {
	reg *registry.Registry
}

// New creates a Replacer backed by reg.
func New(reg *registry.Registry) *Replacer {
	return &Replacer{reg: reg}
}

var defaultReplacer = New(registry.Default)

// Replace returns a copy of rec with the field at path set to v. When the
// path crosses a list and v is a list while the target field is not
// list-typed, v supplies one value per element of the first list crossed and
// its length must match. Otherwise every element of every list crossed
// receives the same v. The empty path returns rec unchanged.
func (r *Replacer) Replace(rec *ir.Record, path string, v ir.Value) (*ir.Record, error) {
	return r.apply(rec, path, v, false)
}

// ReplaceEach is like Replace but vs supplies one value per element of the
// first list the path crosses. A length disagreement fails with
// LENGTH_MISMATCH.
func (r *Replacer) ReplaceEach(rec *ir.Record, path string, vs ir.List) (*ir.Record, error) {
	return r.apply(rec, path, vs, true)
}

// ReplaceMany applies updates in slice order. Overlapping paths resolve by
// last write wins.
func (r *Replacer) ReplaceMany(rec *ir.Record, updates []Update) (*ir.Record, error) {
	out := rec
	for _, u := range updates {
		var err error
		if out, err = r.apply(out, u.Path, u.Value, u.Each); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Replacer) apply(rec *ir.Record, path string, v ir.Value, each bool) (*ir.Record, error) {
	p, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return rec, nil
	}
	leaf, err := p.resolve(rec.Type())
	if err != nil {
		return nil, err
	}
	w := walk{reg: r.reg, path: p, each: each || distributes(leaf, v)}
	out, err := w.record(rec, 0, v)
	if err != nil {
		return nil, err
	}
	if each && !w.crossed {
		return nil, ir.Errorf(ir.ErrCodeTypeMismatch, rec.Type().Name, path, "per-element replacement needs a path through a list")
	}
	return out, nil
}

// distributes reports whether a list value is meant per element rather than
// as the new value of a list-typed field.
func distributes(leaf []ir.Type, v ir.Value) bool {
	if _, ok := v.(ir.List); !ok {
		return false
	}
	for _, t := range leaf {
		if acceptsList(t) {
			return false
		}
	}
	return true
}

type walk struct {
	reg     *registry.Registry
	path    Path
	each    bool
	crossed bool
}

// record replaces path[depth:] inside rec. The path has been validated, so a
// record lacking the segment is an element of a union list and is skipped.
func (w *walk) record(rec *ir.Record, depth int, v ir.Value) (*ir.Record, error) {
	seg := w.path[depth]
	cur, err := rec.Get(seg)
	if err != nil {
		return rec, nil
	}
	if depth == len(w.path)-1 {
		return w.reg.Replace(rec, ir.F(seg, v))
	}
	next, err := w.descend(cur, depth+1, v)
	if err != nil {
		return nil, err
	}
	return w.reg.Replace(rec, ir.F(seg, next))
}

func (w *walk) descend(cur ir.Value, depth int, v ir.Value) (ir.Value, error) {
	switch cv := cur.(type) {
	case *ir.Record:
		return w.record(cv, depth, v)
	case ir.List:
		return w.list(cv, depth, v)
	default:
		// Unset optional sub-record or a non-record list element.
		return cur, nil
	}
}

func (w *walk) list(elems ir.List, depth int, v ir.Value) (ir.List, error) {
	perElement := false
	var vs ir.List
	if w.each && !w.crossed {
		w.crossed = true
		perElement = true
		var ok bool
		if vs, ok = v.(ir.List); !ok {
			return nil, ir.Errorf(ir.ErrCodeTypeMismatch, "", w.path.String(), "per-element value must be a list, got %s", ir.Describe(v))
		}
		if len(vs) != len(elems) {
			return nil, ir.NewLengthMismatchError("", w.path[:depth].String(), len(elems), len(vs))
		}
	}

	out := make(ir.List, len(elems))
	for i, e := range elems {
		ev := v
		if perElement {
			ev = vs[i]
		}
		next, err := w.descend(e, depth, ev)
		if err != nil {
			return nil, err
		}
		out[i] = next
	}
	return out, nil
}

// Replace sets the field at path using the default registry.
func Replace(rec *ir.Record, path string, v ir.Value) (*ir.Record, error) {
	return defaultReplacer.Replace(rec, path, v)
}

// ReplaceEach sets per-element values using the default registry.
func ReplaceEach(rec *ir.Record, path string, vs ir.List) (*ir.Record, error) {
	return defaultReplacer.ReplaceEach(rec, path, vs)
}

// ReplaceMany applies updates using the default registry.
func ReplaceMany(rec *ir.Record, updates []Update) (*ir.Record, error) {
	return defaultReplacer.ReplaceMany(rec, updates)
}
