package array

import (
	"fmt"
	"slices"
)

// Runtime is the set of numeric primitives compaction is written against.
type Runtime interface {
	// PrefixSum returns running counts of true entries (see PrefixSum).
	PrefixSum(mask []bool, exclusive bool) []int

	// SegmentSum scatters the rows of a into numSegments output rows,
	// summing rows that share a segment id. Ids outside [0, numSegments)
	// are dropped.
	SegmentSum(a *Array, segmentIDs []int, numSegments int) (*Array, error)

	// Where selects rows of y where mask is true and rows of x elsewhere.
	Where(mask []bool, x, y *Array) (*Array, error)
}

// Host is the default single-threaded runtime.
type Host struct{}

var _ Runtime = Host{}

// PrefixSum implements Runtime.
func (Host) PrefixSum(mask []bool, exclusive bool) []int {
	return PrefixSum(mask, exclusive)
}

// SegmentSum implements Runtime.
func (Host) SegmentSum(a *Array, segmentIDs []int, numSegments int) (*Array, error) {
	return SegmentSum(a, segmentIDs, numSegments)
}

// Where implements Runtime.
func (Host) Where(mask []bool, x, y *Array) (*Array, error) {
	return Where(mask, x, y)
}

// SegmentSum is the scatter-with-addition primitive along the leading axis.
func SegmentSum(a *Array, segmentIDs []int, numSegments int) (*Array, error) {
	if a.Rank() == 0 {
		return nil, fmt.Errorf("segment sum: scalar array has no leading axis")
	}
	if len(segmentIDs) != a.Len() {
		return nil, fmt.Errorf("segment sum: %d segment ids for leading dim %d", len(segmentIDs), a.Len())
	}
	if numSegments < 0 {
		return nil, fmt.Errorf("segment sum: negative segment count %d", numSegments)
	}

	row := a.RowSize()
	add := Catalog[OpAdd]
	out := make([]float64, numSegments*row)
	for i, seg := range segmentIDs {
		if seg < 0 || seg >= numSegments {
			continue
		}
		combineInto(add, out[seg*row:(seg+1)*row], a.data[i*row:(i+1)*row])
	}

	shape := slices.Clone(a.shape)
	shape[0] = numSegments
	return a.withData(shape, out), nil
}

// Where selects, row by row along the leading axis, y where mask is true and
// x otherwise. The mask broadcasts over the trailing dimensions.
func Where(mask []bool, x, y *Array) (*Array, error) {
	if !slices.Equal(x.shape, y.shape) {
		return nil, fmt.Errorf("where: shape mismatch %v vs %v", x.shape, y.shape)
	}
	if x.dtype != y.dtype {
		return nil, fmt.Errorf("where: dtype mismatch %v vs %v", x.dtype, y.dtype)
	}
	if x.Rank() == 0 {
		return nil, fmt.Errorf("where: scalar array has no leading axis")
	}
	if len(mask) != x.Len() {
		return nil, fmt.Errorf("where: mask length %d for leading dim %d", len(mask), x.Len())
	}

	row := x.RowSize()
	out := slices.Clone(x.data)
	for i, m := range mask {
		if m {
			copy(out[i*row:(i+1)*row], y.data[i*row:(i+1)*row])
		}
	}
	return x.withData(slices.Clone(x.shape), out), nil
}
