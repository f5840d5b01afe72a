package array

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
)

// DType identifies the element type of an Array.
type DType uint8

const (
	Invalid DType = iota
	Float64
	Float32
	Int64
	Int32
	Bool
)

var dtypeNames = map[DType]string{
	Float64: "f64",
	Float32: "f32",
	Int64:   "i64",
	Int32:   "i32",
	Bool:    "bool",
}

// String returns the short dtype name used in type expressions ("f64", "i32", ...).
func (d DType) String() string {
	if name, ok := dtypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// ParseDType resolves a short dtype name.
func ParseDType(s string) (DType, error) {
	for d, name := range dtypeNames {
		if name == s {
			return d, nil
		}
	}
	return Invalid, fmt.Errorf("unknown dtype %q", s)
}

// ItemSize returns the byte width of one element in the Bytes encoding.
func (d DType) ItemSize() int {
	switch d {
	case Float64, Int64:
		return 8
	case Float32, Int32:
		return 4
	case Bool:
		return 1
	default:
		return 0
	}
}

// maxExactInt is the largest magnitude an int64 element can hold, since
// elements are stored as float64.
const maxExactInt = 1 << 53

// Array is an immutable n-dimensional numeric array.
// Values are stored as float64 and coerced to the dtype on construction.
// Int64 arrays are therefore limited to integers of magnitude at most 2^53;
// New and FromBytes reject anything larger.
type Array struct {
	dtype DType
	shape []int
	data  []float64
}

// New creates an array, copying data and coercing each element to dtype.
func New(dtype DType, shape []int, data []float64) (*Array, error) {
	if dtype.ItemSize() == 0 {
		return nil, fmt.Errorf("new array: invalid dtype %v", dtype)
	}
	size, err := sizeOf(shape)
	if err != nil {
		return nil, fmt.Errorf("new array: %w", err)
	}
	if size != len(data) {
		return nil, fmt.Errorf("new array: shape %v needs %d elements, got %d", shape, size, len(data))
	}
	out := make([]float64, len(data))
	for i, x := range data {
		out[i] = coerce(dtype, x)
		if dtype == Int64 && math.Abs(out[i]) > maxExactInt {
			return nil, fmt.Errorf("new array: element %d (%g) exceeds the exact int64 range ±2^53", i, x)
		}
	}
	return &Array{dtype: dtype, shape: slices.Clone(shape), data: out}, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(dtype DType, shape []int, data []float64) *Array {
	a, err := New(dtype, shape, data)
	if err != nil {
		panic(err)
	}
	return a
}

// FromFloat64s creates a 1-D float64 array.
func FromFloat64s(data ...float64) *Array {
	return MustNew(Float64, []int{len(data)}, data)
}

// FromInt32s creates a 1-D int32 array.
func FromInt32s(data ...int32) *Array {
	vals := make([]float64, len(data))
	for i, x := range data {
		vals[i] = float64(x)
	}
	return MustNew(Int32, []int{len(data)}, vals)
}

// FromBools creates a 1-D bool array.
func FromBools(data ...bool) *Array {
	vals := make([]float64, len(data))
	for i, b := range data {
		if b {
			vals[i] = 1
		}
	}
	return MustNew(Bool, []int{len(data)}, vals)
}

// Zeros creates a zero-filled array.
func Zeros(dtype DType, shape ...int) (*Array, error) {
	size, err := sizeOf(shape)
	if err != nil {
		return nil, err
	}
	return New(dtype, shape, make([]float64, size))
}

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Shape returns a copy of the shape.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.shape) }

// Size returns the total number of elements.
func (a *Array) Size() int { return len(a.data) }

// Len returns the length of the leading (entity) axis, or 0 for scalars.
func (a *Array) Len() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

// RowSize returns the number of elements in one entity row.
func (a *Array) RowSize() int {
	n := 1
	for _, d := range a.shape[min(1, len(a.shape)):] {
		n *= d
	}
	return n
}

// At returns the element at the given multi-index.
func (a *Array) At(idx ...int) float64 {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("array: index rank %d does not match shape %v", len(idx), a.shape))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.shape[i] {
			panic(fmt.Sprintf("array: index %v out of range for shape %v", idx, a.shape))
		}
		off = off*a.shape[i] + x
	}
	return a.data[off]
}

// Data returns a copy of the flat row-major data.
func (a *Array) Data() []float64 { return slices.Clone(a.data) }

// Bools returns the data as booleans (non-zero is true).
func (a *Array) Bools() []bool {
	out := make([]bool, len(a.data))
	for i, x := range a.data {
		out[i] = x != 0
	}
	return out
}

// Equal reports whether a and b have the same dtype, shape and elements.
// NaN compares equal to NaN so round-trips of undefined slots stay stable.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.dtype != b.dtype || !slices.Equal(a.shape, b.shape) {
		return false
	}
	for i := range a.data {
		x, y := a.data[i], b.data[i]
		if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
			return false
		}
	}
	return true
}

// String renders the array for diagnostics.
func (a *Array) String() string {
	return fmt.Sprintf("%v%v%v", a.dtype, a.shape, a.data)
}

// Bytes returns the little-endian raw byte content in the dtype's width.
func (a *Array) Bytes() []byte {
	sz := a.dtype.ItemSize()
	buf := make([]byte, len(a.data)*sz)
	for i, x := range a.data {
		p := buf[i*sz:]
		switch a.dtype {
		case Float64:
			binary.LittleEndian.PutUint64(p, math.Float64bits(x))
		case Float32:
			binary.LittleEndian.PutUint32(p, math.Float32bits(float32(x)))
		case Int64:
			binary.LittleEndian.PutUint64(p, uint64(int64(x)))
		case Int32:
			binary.LittleEndian.PutUint32(p, uint32(int32(x)))
		case Bool:
			if x != 0 {
				p[0] = 1
			}
		}
	}
	return buf
}

// FromBytes decodes the Bytes encoding back into an array.
func FromBytes(dtype DType, shape []int, raw []byte) (*Array, error) {
	sz := dtype.ItemSize()
	if sz == 0 {
		return nil, fmt.Errorf("from bytes: invalid dtype %v", dtype)
	}
	size, err := sizeOf(shape)
	if err != nil {
		return nil, fmt.Errorf("from bytes: %w", err)
	}
	if len(raw) != size*sz {
		return nil, fmt.Errorf("from bytes: shape %v with dtype %v needs %d bytes, got %d", shape, dtype, size*sz, len(raw))
	}
	data := make([]float64, size)
	for i := range data {
		p := raw[i*sz:]
		switch dtype {
		case Float64:
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(p))
		case Float32:
			data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
		case Int64:
			v := int64(binary.LittleEndian.Uint64(p))
			if v > maxExactInt || v < -maxExactInt {
				return nil, fmt.Errorf("from bytes: element %d (%d) exceeds the exact int64 range ±2^53", i, v)
			}
			data[i] = float64(v)
		case Int32:
			data[i] = float64(int32(binary.LittleEndian.Uint32(p)))
		case Bool:
			if p[0] != 0 {
				data[i] = 1
			}
		}
	}
	return &Array{dtype: dtype, shape: slices.Clone(shape), data: data}, nil
}

// withData builds an array sharing dtype with a, taking ownership of data.
func (a *Array) withData(shape []int, data []float64) *Array {
	for i, x := range data {
		data[i] = coerce(a.dtype, x)
	}
	return &Array{dtype: a.dtype, shape: shape, data: data}
}

func coerce(dtype DType, x float64) float64 {
	switch dtype {
	case Float32:
		return float64(float32(x))
	case Int64, Int32:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return math.Trunc(x)
	case Bool:
		if x != 0 && !math.IsNaN(x) {
			return 1
		}
		return 0
	default:
		return x
	}
}

func sizeOf(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension in shape %v", shape)
		}
		n *= d
	}
	return n, nil
}
