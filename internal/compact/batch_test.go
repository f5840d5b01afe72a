package compact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/simtree/internal/array"
	"github.com/roach88/simtree/internal/ir"
)

func TestFilterKBatchPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	e := newEngine(t, WithWorkers(3))

	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = Job{
			Tree: ir.ArrayOf(array.FromFloat64s(float64(i), float64(i+100))),
			Mask: []bool{i%2 == 0, true},
			K:    1,
		}
	}

	results, err := e.FilterKBatch(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))

	for i, res := range results {
		want := float64(i + 100)
		if i%2 == 0 {
			want = float64(i)
			assert.True(t, res.Truncated(), "job %d", i)
		}
		assert.Equal(t, []float64{want}, res.Tree.(ir.Array).Data(), "job %d", i)
	}
}

func TestFilterKBatchFirstError(t *testing.T) {
	defer goleak.VerifyNone(t)
	e := newEngine(t, WithWorkers(1))

	jobs := []Job{
		{Tree: ir.ArrayOf(array.FromFloat64s(1)), Mask: []bool{true}, K: 1},
		{Tree: ir.ArrayOf(array.FromFloat64s(1, 2)), Mask: []bool{true}, K: 1},
		{Tree: ir.ArrayOf(array.FromFloat64s(1)), Mask: []bool{true}, K: 1},
	}

	_, err := e.FilterKBatch(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job 1")
	assert.True(t, ir.HasCode(err, ir.ErrCodeShapeMismatch))
}

func TestFilterKBatchCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)
	e := newEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.FilterKBatch(ctx, []Job{{Tree: ir.ArrayOf(array.FromFloat64s(1)), Mask: []bool{true}, K: 1}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilterKBatchEmpty(t *testing.T) {
	results, err := newEngine(t).FilterKBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
