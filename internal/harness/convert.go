package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/simtree/internal/array"
	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/store"
	"github.com/roach88/simtree/internal/treepath"
)

// recordKey selects a record variant when a YAML mapping is converted to a
// union type.
const recordKey = "$record"

// convert turns a decoded YAML value into an ir.Value of declared type t.
//
// Arrays are written as nested lists of numbers, or as a mapping
// {dtype: f32, data: [...]} when the declared type leaves the dtype open.
// Opaque values are written as strings and carried as their bytes.
func convert(raw any, t ir.Type) (ir.Value, error) {
	switch tt := t.(type) {
	case ir.ArrayType:
		a, err := toArray(raw, tt.DType)
		if err != nil {
			return nil, err
		}
		return ir.ArrayOf(a), nil
	case ir.HostArrayType:
		a, err := toArray(raw, array.Invalid)
		if err != nil {
			return nil, err
		}
		return ir.HostArrayOf(a), nil
	case ir.ScalarType:
		return toScalar(raw, tt)
	case ir.EnumType:
		s, ok := raw.(string)
		if !ok || !tt.Has(s) {
			return nil, mismatch(raw, t)
		}
		return ir.Enum(s), nil
	case ir.NullType:
		if raw != nil {
			return nil, mismatch(raw, t)
		}
		return ir.Null{}, nil
	case ir.OpaqueType:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(raw, t)
		}
		return ir.Opaque{Tag: tt.Tag, V: store.RawOpaque(s)}, nil
	case ir.SeqType:
		items, ok := raw.([]any)
		if !ok {
			return nil, mismatch(raw, t)
		}
		out := make(ir.List, len(items))
		for i, item := range items {
			v, err := convert(item, tt.Elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case ir.MapType:
		entries, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(raw, t)
		}
		out := make(ir.Map, len(entries))
		for k, e := range entries {
			v, err := convert(e, tt.Elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	case ir.UnionType:
		return toUnion(raw, tt)
	case *ir.RecordType:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(raw, t)
		}
		return buildRecord(tt, m)
	}
	return nil, fmt.Errorf("cannot convert YAML to %s", t)
}

// buildRecord converts a YAML mapping into a record of type rt. Fields left
// out fall back to their defaults.
func buildRecord(rt *ir.RecordType, m map[string]any) (*ir.Record, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		if name != recordKey {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	if want, ok := m[recordKey]; ok && want != rt.Name {
		return nil, ir.Errorf(ir.ErrCodeTypeMismatch, rt.Name, "", "mapping is tagged %v", want)
	}

	sets := make([]ir.Set, 0, len(names))
	for _, name := range names {
		f, ok := rt.Field(name)
		if !ok {
			return nil, ir.NewUnknownFieldError(rt.Name, name)
		}
		v, err := convert(m[name], f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", rt.Name, name, err)
		}
		sets = append(sets, ir.F(name, v))
	}
	return ir.NewRecord(rt, sets...)
}

func toUnion(raw any, t ir.UnionType) (ir.Value, error) {
	if m, ok := raw.(map[string]any); ok {
		if name, tagged := m[recordKey]; tagged {
			for _, variant := range t.Variants {
				if rt, ok := variant.(*ir.RecordType); ok && rt.Name == name {
					return buildRecord(rt, m)
				}
			}
			return nil, ir.Errorf(ir.ErrCodeTypeMismatch, "", "", "no record variant %v in %s", name, t)
		}
	}
	for _, variant := range t.Variants {
		if v, err := convert(raw, variant); err == nil {
			return v, nil
		}
	}
	return nil, mismatch(raw, t)
}

func toScalar(raw any, t ir.ScalarType) (ir.Value, error) {
	switch t.Scalar {
	case ir.ScalarBool:
		if b, ok := raw.(bool); ok {
			return ir.Bool(b), nil
		}
	case ir.ScalarInt:
		if n, ok := raw.(int); ok {
			return ir.Int(n), nil
		}
	case ir.ScalarFloat:
		switch n := raw.(type) {
		case float64:
			return ir.Float(n), nil
		case int:
			return ir.Float(n), nil
		}
	case ir.ScalarString:
		if s, ok := raw.(string); ok {
			return ir.String(s), nil
		}
	}
	return nil, mismatch(raw, t)
}

// toArray converts nested YAML lists into an array. An open dtype defaults
// to f64 unless the mapping form names one.
func toArray(raw any, dtype array.DType) (*array.Array, error) {
	if m, ok := raw.(map[string]any); ok {
		name, _ := m["dtype"].(string)
		d, err := array.ParseDType(name)
		if err != nil {
			return nil, ir.Errorf(ir.ErrCodeTypeMismatch, "", "", "array mapping: %v", err)
		}
		if dtype != array.Invalid && d != dtype {
			return nil, ir.Errorf(ir.ErrCodeTypeMismatch, "", "", "array dtype %s, want %s", d, dtype)
		}
		return toArray(m["data"], d)
	}
	if dtype == array.Invalid {
		dtype = array.Float64
	}

	shape := shapeOf(raw)
	data := make([]float64, 0)
	if err := flattenNumbers(raw, shape, &data); err != nil {
		return nil, err
	}
	return array.New(dtype, shape, data)
}

// shapeOf follows the first element at each nesting level.
func shapeOf(raw any) []int {
	shape := []int{}
	for {
		items, ok := raw.([]any)
		if !ok {
			return shape
		}
		shape = append(shape, len(items))
		if len(items) == 0 {
			return shape
		}
		raw = items[0]
	}
}

func flattenNumbers(raw any, shape []int, out *[]float64) error {
	if len(shape) == 0 {
		switch n := raw.(type) {
		case int:
			*out = append(*out, float64(n))
		case float64:
			*out = append(*out, n)
		case bool:
			if n {
				*out = append(*out, 1)
			} else {
				*out = append(*out, 0)
			}
		default:
			return ir.Errorf(ir.ErrCodeTypeMismatch, "", "", "array element %v (%T) is not a number", raw, raw)
		}
		return nil
	}
	items, ok := raw.([]any)
	if !ok || len(items) != shape[0] {
		return ir.Errorf(ir.ErrCodeShapeMismatch, "", "", "ragged array: want %d elements at this level", shape[0])
	}
	for _, item := range items {
		if err := flattenNumbers(item, shape[1:], out); err != nil {
			return err
		}
	}
	return nil
}

func mismatch(raw any, t ir.Type) error {
	return ir.Errorf(ir.ErrCodeTypeMismatch, "", "", "YAML value %v (%T) is not a %s", raw, raw, t)
}

// typeAt resolves the declared type at p below t. With gather set, every
// list crossed wraps the result, matching what valueAt collects; otherwise
// the field's own type is returned.
func typeAt(t ir.Type, p treepath.Path, gather bool) (ir.Type, bool) {
	if len(p) == 0 {
		return t, true
	}
	switch tt := t.(type) {
	case *ir.RecordType:
		f, ok := tt.Field(p[0])
		if !ok {
			return nil, false
		}
		return typeAt(f.Type, p[1:], gather)
	case ir.SeqType:
		elem, ok := typeAt(tt.Elem, p, gather)
		if !ok {
			return nil, false
		}
		if gather {
			return ir.SeqType{Elem: elem}, true
		}
		return elem, true
	case ir.UnionType:
		for _, variant := range tt.Variants {
			if et, ok := typeAt(variant, p, gather); ok {
				return et, true
			}
		}
	}
	return nil, false
}

// valueAt collects the values at p below v. Lists yield one result per
// element that has the path; elements without it are skipped.
func valueAt(v ir.Value, p treepath.Path) (ir.Value, bool) {
	if len(p) == 0 {
		return v, true
	}
	switch vv := v.(type) {
	case *ir.Record:
		f, err := vv.Get(p[0])
		if err != nil {
			return nil, false
		}
		return valueAt(f, p[1:])
	case ir.List:
		out := ir.List{}
		for _, e := range vv {
			if x, ok := valueAt(e, p); ok {
				out = append(out, x)
			}
		}
		return out, true
	}
	return nil, false
}
