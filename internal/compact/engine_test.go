package compact

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simtree/internal/array"
	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/registry"
	"github.com/roach88/simtree/internal/testutil"
	"github.com/roach88/simtree/internal/tree"
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	reg := registry.New()
	for _, rt := range testutil.Types() {
		_, err := reg.Register(rt)
		require.NoError(t, err)
	}
	return New(append([]Option{WithTree(tree.New(reg))}, opts...)...)
}

func floats(v ir.Value) []float64 {
	return v.(ir.Array).Data()
}

func TestFilterKCompactsInOrder(t *testing.T) {
	e := newEngine(t)
	v := ir.ArrayOf(array.FromFloat64s(10, 20, 30, 40))

	res, err := e.FilterK(v, []bool{false, true, false, true}, 3)
	require.NoError(t, err)

	assert.Equal(t, []float64{20, 40, 0}, floats(res.Tree))
	assert.Equal(t, []bool{false, false, true}, res.FillMask)
	assert.Equal(t, 2, res.Selected)
	assert.Equal(t, 0, res.Dropped)
	assert.False(t, res.Truncated())

	filled, err := e.Fill(res.Tree, ir.ArrayOf(array.FromFloat64s(0, 0, 0)), res.FillMask)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 40, 0}, floats(filled))
}

func TestFilterKRecord(t *testing.T) {
	e := newEngine(t)
	contacts := testutil.NewContacts(10, 20, 30, 40)

	res, err := e.FilterK(contacts, []bool{false, true, false, true}, 3)
	require.NoError(t, err)

	out := res.Tree.(*ir.Record)
	assert.Equal(t, []float64{20, 40, 0}, testutil.Floats(out, "dist"))
	assert.Equal(t, []float64{20, 40, 60, 40, 80, 120, 0, 0, 0}, testutil.Floats(out, "pos"))
	assert.Equal(t, []int{3, 3}, out.MustGet("pos").(ir.Array).Shape())
	assert.Equal(t, []float64{1, 3, 0}, testutil.Floats(out, "geom"))
	assert.Equal(t, array.Int32, out.MustGet("geom").(ir.Array).DType())
	assert.True(t, ir.Equal(contacts.MustGet("solref"), out.MustGet("solref")), "static fields carried over")

	neutral := testutil.NewContacts(-1, -1, -1)
	filled, err := e.Fill(out, neutral, res.FillMask)
	require.NoError(t, err)

	fr := filled.(*ir.Record)
	assert.Equal(t, []float64{20, 40, -1}, testutil.Floats(fr, "dist"))
	assert.Equal(t, []float64{20, 40, 60, 40, 80, 120, -1, -2, -3}, testutil.Floats(fr, "pos"))
	assert.Equal(t, []float64{1, 3, 2}, testutil.Floats(fr, "geom"))
}

func TestFilterKTruncation(t *testing.T) {
	e := newEngine(t)
	before := promtest.ToFloat64(droppedEntities)

	res, err := e.FilterK(ir.ArrayOf(array.FromFloat64s(1, 2, 3)), []bool{true, true, true}, 2)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2}, floats(res.Tree))
	assert.Equal(t, []bool{false, false}, res.FillMask)
	assert.Equal(t, 2, res.Selected)
	assert.Equal(t, 1, res.Dropped)
	assert.True(t, res.Truncated())
	assert.Equal(t, before+1, promtest.ToFloat64(droppedEntities))
}

func TestFilterKAllFalse(t *testing.T) {
	e := newEngine(t)

	res, err := e.FilterK(ir.ArrayOf(array.FromFloat64s(5, 6, 7)), []bool{false, false, false}, 4)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true, true, true}, res.FillMask)
	assert.Equal(t, []float64{0, 0, 0, 0}, floats(res.Tree))
	assert.Equal(t, 0, res.Selected)
}

func TestFilterKZeroCapacity(t *testing.T) {
	e := newEngine(t)

	res, err := e.FilterK(testutil.NewContacts(1, 2), []bool{true, false}, 0)
	require.NoError(t, err)

	assert.Empty(t, res.FillMask)
	assert.Equal(t, 0, res.Selected)
	assert.Equal(t, 1, res.Dropped)
	out := res.Tree.(*ir.Record)
	assert.Equal(t, []int{0, 3}, out.MustGet("pos").(ir.Array).Shape())
}

// naiveFilter is the sequential reference for FilterK.
func naiveFilter(xs []float64, mask []bool, k int) ([]float64, []bool) {
	out := make([]float64, k)
	n := 0
	for i, m := range mask {
		if m && n < k {
			out[n] = xs[i]
			n++
		}
	}
	fill := make([]bool, k)
	for j := n; j < k; j++ {
		fill[j] = true
	}
	return out, fill
}

func TestFilterKMatchesSequentialReference(t *testing.T) {
	e := newEngine(t)
	xs := []float64{1, 2, 3, 4, 5, 6}

	for bits := 0; bits < 1<<len(xs); bits++ {
		mask := make([]bool, len(xs))
		for i := range mask {
			mask[i] = bits&(1<<i) != 0
		}
		for k := 0; k <= len(xs)+1; k++ {
			res, err := e.FilterK(ir.ArrayOf(array.FromFloat64s(xs...)), mask, k)
			require.NoError(t, err)

			wantOut, wantFill := naiveFilter(xs, mask, k)
			if diff := cmp.Diff(wantOut, floats(res.Tree)); diff != "" {
				t.Fatalf("mask=%v k=%d output (-want +got):\n%s", mask, k, diff)
			}
			if diff := cmp.Diff(wantFill, res.FillMask); diff != "" {
				t.Fatalf("mask=%v k=%d fill mask (-want +got):\n%s", mask, k, diff)
			}
		}
	}
}

func TestFilterKErrors(t *testing.T) {
	e := newEngine(t)
	vec := ir.ArrayOf(array.FromFloat64s(1, 2))
	scalar := ir.ArrayOf(array.MustNew(array.Float64, []int{}, []float64{1}))

	tests := []struct {
		name string
		v    ir.Value
		mask []bool
		k    int
	}{
		{"negative capacity", vec, []bool{true, true}, -1},
		{"mask length", vec, []bool{true}, 1},
		{"scalar leaf", scalar, []bool{true}, 1},
		{"ragged leaves", ir.List{vec, ir.ArrayOf(array.FromFloat64s(1, 2, 3))}, []bool{true, true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.FilterK(tt.v, tt.mask, tt.k)
			assert.True(t, ir.HasCode(err, ir.ErrCodeShapeMismatch), "got %v", err)
		})
	}
}

func TestFilterKErrorNamesLeaf(t *testing.T) {
	e := newEngine(t)

	_, err := e.FilterK(testutil.NewContacts(1, 2, 3), []bool{true}, 1)
	var se *ir.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "dist", se.Field)
}

func TestFillErrors(t *testing.T) {
	e := newEngine(t)

	_, err := e.Fill(testutil.NewContacts(1, 2), testutil.NewGeom(1, 1, 2), []bool{true, false})
	assert.True(t, ir.HasCode(err, ir.ErrCodeStructureMismatch))

	_, err = e.Fill(testutil.NewContacts(1, 2), testutil.NewContacts(0, 0), []bool{true})
	assert.True(t, ir.HasCode(err, ir.ErrCodeShapeMismatch))

	_, err = e.Fill(testutil.NewContacts(1, 2), testutil.NewContacts(0, 0, 0), []bool{true, false})
	assert.True(t, ir.HasCode(err, ir.ErrCodeShapeMismatch))
}

type countingRuntime struct {
	array.Host
	prefixCalls int
}

func (c *countingRuntime) PrefixSum(mask []bool, exclusive bool) []int {
	c.prefixCalls++
	return c.Host.PrefixSum(mask, exclusive)
}

func TestWithRuntime(t *testing.T) {
	rt := &countingRuntime{}
	e := newEngine(t, WithRuntime(rt))

	_, err := e.FilterK(ir.ArrayOf(array.FromFloat64s(1)), []bool{true}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, rt.prefixCalls)
}

func ExampleFilterK() {
	res, err := FilterK(ir.ArrayOf(array.FromFloat64s(10, 20, 30, 40)), []bool{false, true, false, true}, 3)
	if err != nil {
		panic(err)
	}
	filled, err := Fill(res.Tree, ir.ArrayOf(array.FromFloat64s(0, 0, 0)), res.FillMask)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.FillMask, filled.(ir.Array).Data())
	// Output: [false false true] [20 40 0]
}
