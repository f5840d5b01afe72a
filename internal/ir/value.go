package ir

import (
	"bytes"
	"encoding"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"

	"github.com/roach88/simtree/internal/array"
)

// Value is a sealed interface over record field values.
// Only the types in this file and *Record implement it.
type Value interface {
	value() // Sealed
}

// Null is the absent value.
type Null struct{}

func (Null) value() {}

// Bool is a boolean scalar.
type Bool bool

func (Bool) value() {}

// Int is an integer scalar.
type Int int64

func (Int) value() {}

// Float is a floating-point scalar.
type Float float64

func (Float) value() {}

// String is a string scalar.
type String string

func (String) value() {}

// Enum is an enum member name.
type Enum string

func (Enum) value() {}

// Array is a dynamic numeric-array leaf.
type Array struct {
	*array.Array
}

func (Array) value() {}

// ArrayOf wraps a runtime array as a Value.
func ArrayOf(a *array.Array) Array {
	return Array{Array: a}
}

// HostArray is a static configuration array held as raw bytes with its dtype
// and shape, so equality and hashing are well defined.
type HostArray struct {
	dtype array.DType
	shape []int
	raw   []byte
}

func (HostArray) value() {}

// NewHostArray creates a host array from its raw byte content.
func NewHostArray(dtype array.DType, shape []int, raw []byte) (HostArray, error) {
	// Decoding validates dtype, shape and byte length together.
	if _, err := array.FromBytes(dtype, shape, raw); err != nil {
		return HostArray{}, fmt.Errorf("host array: %w", err)
	}
	return HostArray{dtype: dtype, shape: slices.Clone(shape), raw: bytes.Clone(raw)}, nil
}

// HostArrayOf snapshots a runtime array into a host array.
func HostArrayOf(a *array.Array) HostArray {
	return HostArray{dtype: a.DType(), shape: a.Shape(), raw: a.Bytes()}
}

// DType returns the element type.
func (h HostArray) DType() array.DType { return h.dtype }

// Shape returns a copy of the shape.
func (h HostArray) Shape() []int { return slices.Clone(h.shape) }

// Bytes returns a copy of the raw content.
func (h HostArray) Bytes() []byte { return bytes.Clone(h.raw) }

// Array decodes the host array into a runtime array.
func (h HostArray) Array() (*array.Array, error) {
	return array.FromBytes(h.dtype, h.shape, h.raw)
}

// Equal compares dtype, shape and byte content.
func (h HostArray) Equal(o HostArray) bool {
	return h.dtype == o.dtype && slices.Equal(h.shape, o.shape) && bytes.Equal(h.raw, o.raw)
}

// List is an ordered sequence of values.
type List []Value

func (List) value() {}

// Map is a string-keyed mapping. Use SortedKeys for deterministic iteration.
type Map map[string]Value

func (Map) value() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return compareKeysRFC8785(keys[i], keys[j]) < 0 })
	return keys
}

// Opaque carries an application value through the record untouched.
type Opaque struct {
	Tag string
	V   any
}

func (Opaque) value() {}

// Equal reports structural equality of two values.
// Floats compare NaN equal to NaN; arrays compare dtype, shape and data.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && (av == bv || math.IsNaN(float64(av)) && math.IsNaN(float64(bv)))
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Enum:
		bv, ok := b.(Enum)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		return ok && av.Array.Equal(bv.Array)
	case HostArray:
		bv, ok := b.(HostArray)
		return ok && av.Equal(bv)
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	case Opaque:
		bv, ok := b.(Opaque)
		return ok && av.Tag == bv.Tag && opaqueEqual(av.V, bv.V)
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	default:
		return false
	}
}

func opaqueEqual(a, b any) bool {
	am, aok := a.(encoding.BinaryMarshaler)
	bm, bok := b.(encoding.BinaryMarshaler)
	if aok && bok {
		ab, aerr := am.MarshalBinary()
		bb, berr := bm.MarshalBinary()
		return aerr == nil && berr == nil && bytes.Equal(ab, bb)
	}
	return reflect.DeepEqual(a, b)
}

// Conforms reports whether v is an admissible value for declared type t.
func Conforms(t Type, v Value) bool {
	switch tt := t.(type) {
	case ArrayType:
		av, ok := v.(Array)
		return ok && av.Array != nil && (tt.DType == array.Invalid || av.DType() == tt.DType)
	case HostArrayType:
		_, ok := v.(HostArray)
		return ok
	case ScalarType:
		switch tt.Scalar {
		case ScalarBool:
			_, ok := v.(Bool)
			return ok
		case ScalarInt:
			_, ok := v.(Int)
			return ok
		case ScalarFloat:
			_, ok := v.(Float)
			return ok
		case ScalarString:
			_, ok := v.(String)
			return ok
		}
		return false
	case EnumType:
		ev, ok := v.(Enum)
		return ok && tt.Has(string(ev))
	case NullType:
		_, ok := v.(Null)
		return ok
	case OpaqueType:
		ov, ok := v.(Opaque)
		return ok && ov.Tag == tt.Tag
	case *RecordType:
		rv, ok := v.(*Record)
		return ok && rv != nil && rv.typ.Name == tt.Name
	case SeqType:
		lv, ok := v.(List)
		if !ok {
			return false
		}
		for _, e := range lv {
			if !Conforms(tt.Elem, e) {
				return false
			}
		}
		return true
	case MapType:
		mv, ok := v.(Map)
		if !ok {
			return false
		}
		for _, e := range mv {
			if !Conforms(tt.Elem, e) {
				return false
			}
		}
		return true
	case UnionType:
		for _, variant := range tt.Variants {
			if Conforms(variant, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Describe renders a value for diagnostics.
func Describe(v Value) string {
	switch vv := v.(type) {
	case nil:
		return "<nil>"
	case Null:
		return "null"
	case Array:
		return vv.Array.String()
	case HostArray:
		return fmt.Sprintf("host%v%v(%d bytes)", vv.dtype, vv.shape, len(vv.raw))
	case *Record:
		return vv.String()
	default:
		return fmt.Sprintf("%v", vv)
	}
}
