package array

import (
	"fmt"
	"math"
	"slices"
)

// KernelFn combines two elements.
type KernelFn func(x, y float64) float64

// Op identifies an elementwise kernel.
type Op uint8

// Elementwise operation codes
const (
	OpNoop Op = 0x00
	OpAdd  Op = 0x01
	OpSub  Op = 0x02
	OpMul  Op = 0x03
	OpMax  Op = 0x04
	OpMin  Op = 0x05
)

// Catalog maps opcodes to elementwise kernels.
var Catalog = [256]KernelFn{
	OpNoop: func(x, _ float64) float64 { return x },
	OpAdd:  func(x, y float64) float64 { return x + y },
	OpSub:  func(x, y float64) float64 { return x - y },
	OpMul:  func(x, y float64) float64 { return x * y },
	OpMax:  math.Max,
	OpMin:  math.Min,
}

// Apply runs kernel op elementwise over two arrays of identical shape.
// The result takes a's dtype.
func Apply(op Op, a, b *Array) (*Array, error) {
	fn := Catalog[op]
	if fn == nil {
		return nil, fmt.Errorf("apply: no kernel for op 0x%02x", uint8(op))
	}
	if !slices.Equal(a.shape, b.shape) {
		return nil, fmt.Errorf("apply: shape mismatch %v vs %v", a.shape, b.shape)
	}
	out := slices.Clone(a.data)
	combineInto(fn, out, b.data)
	return a.withData(slices.Clone(a.shape), out), nil
}

// combineInto folds src into dst elementwise with fn.
func combineInto(fn KernelFn, dst, src []float64) {
	for i := range dst {
		dst[i] = fn(dst[i], src[i])
	}
}
