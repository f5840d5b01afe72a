package tree

import (
	"github.com/roach88/simtree/internal/array"
	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/registry"
)

// NodeRegistry is the record flatten/unflatten pair the runtime traverses
// records through. *registry.Registry implements it.
type NodeRegistry interface {
	Lookup(name string) (*registry.Class, bool)
	Flatten(rec *ir.Record) ([]ir.Value, registry.Metadata, error)
	Unflatten(meta registry.Metadata, leaves []ir.Value) (*ir.Record, error)
}

// Runtime flattens and rebuilds values using a NodeRegistry.
type Runtime struct {
	nodes NodeRegistry
}

// New creates a runtime over the given registry.
func New(nodes NodeRegistry) *Runtime {
	return &Runtime{nodes: nodes}
}

// Default traverses records through registry.Default.
var Default = New(registry.Default)

// Flatten returns the array leaves of v in traversal order and the Def
// needed to rebuild it.
func (rt *Runtime) Flatten(v ir.Value) ([]*array.Array, *Def, error) {
	var leaves []*array.Array
	def, err := rt.flatten(v, &leaves)
	if err != nil {
		return nil, nil, err
	}
	return leaves, def, nil
}

func (rt *Runtime) flatten(v ir.Value, leaves *[]*array.Array) (*Def, error) {
	switch vv := v.(type) {
	case ir.Array:
		if vv.Array == nil {
			return nil, ir.Errorf(ir.ErrCodeTypeMismatch, "", "", "nil array leaf")
		}
		*leaves = append(*leaves, vv.Array)
		return &Def{kind: leafNode, leaves: 1}, nil

	case *ir.Record:
		dyn, meta, err := rt.nodes.Flatten(vv)
		if err != nil {
			return nil, err
		}
		class, ok := rt.nodes.Lookup(meta.Record().Name)
		if !ok {
			return nil, ir.Errorf(ir.ErrCodeNotRegistered, meta.Record().Name, "", "record type is not registered")
		}
		def := &Def{kind: recordNode, meta: meta, keys: class.Dynamic}
		if err := rt.flattenChildren(def, dyn, leaves); err != nil {
			return nil, err
		}
		return def, nil

	case ir.List:
		def := &Def{kind: listNode}
		if err := rt.flattenChildren(def, vv, leaves); err != nil {
			return nil, err
		}
		return def, nil

	case ir.Map:
		keys := vv.SortedKeys()
		vals := make([]ir.Value, len(keys))
		for i, k := range keys {
			vals[i] = vv[k]
		}
		def := &Def{kind: mapNode, keys: keys}
		if err := rt.flattenChildren(def, vals, leaves); err != nil {
			return nil, err
		}
		return def, nil

	case nil:
		return nil, ir.Errorf(ir.ErrCodeTypeMismatch, "", "", "nil value")

	default:
		return &Def{kind: atomNode, atom: v}, nil
	}
}

func (rt *Runtime) flattenChildren(def *Def, vals []ir.Value, leaves *[]*array.Array) error {
	def.children = make([]*Def, len(vals))
	for i, child := range vals {
		cd, err := rt.flatten(child, leaves)
		if err != nil {
			return err
		}
		def.children[i] = cd
		def.leaves += cd.leaves
	}
	return nil
}

// Unflatten rebuilds a value from def and exactly def.NumLeaves() leaves.
func (rt *Runtime) Unflatten(def *Def, leaves []*array.Array) (ir.Value, error) {
	if def == nil {
		return nil, ir.Errorf(ir.ErrCodeStructureMismatch, "", "", "nil tree definition")
	}
	if len(leaves) != def.leaves {
		return nil, ir.NewLengthMismatchError("", "", def.leaves, len(leaves))
	}
	v, _, err := rt.unflatten(def, leaves)
	return v, err
}

// unflatten consumes def.leaves arrays from the front of leaves.
func (rt *Runtime) unflatten(def *Def, leaves []*array.Array) (ir.Value, []*array.Array, error) {
	switch def.kind {
	case leafNode:
		return ir.ArrayOf(leaves[0]), leaves[1:], nil
	case atomNode:
		return def.atom, leaves, nil
	}

	vals := make([]ir.Value, len(def.children))
	for i, child := range def.children {
		var err error
		vals[i], leaves, err = rt.unflatten(child, leaves)
		if err != nil {
			return nil, nil, err
		}
	}

	switch def.kind {
	case recordNode:
		rec, err := rt.nodes.Unflatten(def.meta, vals)
		if err != nil {
			return nil, nil, err
		}
		return rec, leaves, nil
	case mapNode:
		m := make(ir.Map, len(vals))
		for i, k := range def.keys {
			m[k] = vals[i]
		}
		return m, leaves, nil
	default:
		return ir.List(vals), leaves, nil
	}
}

// Map applies fn to every array leaf of v and rebuilds the result.
func (rt *Runtime) Map(fn func(*array.Array) (*array.Array, error), v ir.Value) (ir.Value, error) {
	leaves, def, err := rt.Flatten(v)
	if err != nil {
		return nil, err
	}
	out := make([]*array.Array, len(leaves))
	for i, leaf := range leaves {
		if out[i], err = fn(leaf); err != nil {
			return nil, err
		}
	}
	return rt.Unflatten(def, out)
}

// Map2 applies fn pairwise to the leaves of a and b, which must share a Def.
func (rt *Runtime) Map2(fn func(a, b *array.Array) (*array.Array, error), a, b ir.Value) (ir.Value, error) {
	la, da, err := rt.Flatten(a)
	if err != nil {
		return nil, err
	}
	lb, db, err := rt.Flatten(b)
	if err != nil {
		return nil, err
	}
	if !da.Equal(db) {
		return nil, ir.Errorf(ir.ErrCodeStructureMismatch, "", "", "tree structures differ: %s vs %s", da, db)
	}
	out := make([]*array.Array, len(la))
	for i := range la {
		if out[i], err = fn(la[i], lb[i]); err != nil {
			return nil, err
		}
	}
	return rt.Unflatten(da, out)
}

// Flatten flattens v using the Default runtime.
func Flatten(v ir.Value) ([]*array.Array, *Def, error) { return Default.Flatten(v) }

// Unflatten rebuilds a value using the Default runtime.
func Unflatten(def *Def, leaves []*array.Array) (ir.Value, error) {
	return Default.Unflatten(def, leaves)
}

// Map maps leaves using the Default runtime.
func Map(fn func(*array.Array) (*array.Array, error), v ir.Value) (ir.Value, error) {
	return Default.Map(fn, v)
}
