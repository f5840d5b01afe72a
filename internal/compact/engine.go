package compact

import (
	"log/slog"

	"github.com/roach88/simtree/internal/array"
	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/tree"
)

// Engine runs compaction over trees using an array runtime for the numeric
// primitives and a tree runtime for structure.
type Engine struct {
	rt      array.Runtime
	tree    *tree.Runtime
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRuntime sets the array runtime. Default: array.Host.
func WithRuntime(rt array.Runtime) Option {
	return func(e *Engine) { e.rt = rt }
}

// WithTree sets the tree runtime. Default: tree.Default.
func WithTree(t *tree.Runtime) Option {
	return func(e *Engine) { e.tree = t }
}

// WithWorkers bounds FilterKBatch parallelism. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = max(n, 1) }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		rt:      array.Host{},
		tree:    tree.Default,
		workers: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Result is the output of FilterK.
type Result struct {
	// Tree has the input's structure with every leaf's entity dimension k.
	Tree ir.Value

	// FillMask[j] is true when slot j received no entity.
	FillMask []bool

	// Selected is the number of slots filled, min(count(mask), k).
	Selected int

	// Dropped is the number of true-masked entities beyond capacity.
	Dropped int
}

// Truncated reports whether capacity truncation dropped any entity.
func (r Result) Truncated() bool { return r.Dropped > 0 }

// FilterK compacts the first k true-masked entities of v into a tree with
// entity dimension k. Every leaf of v must have rank >= 1 and leading
// dimension len(mask). Unfilled slots hold zeros.
func (e *Engine) FilterK(v ir.Value, mask []bool, k int) (Result, error) {
	res, err := e.filterK(v, mask, k)
	if err != nil {
		filterTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}
	result := "ok"
	if res.Truncated() {
		result = "truncated"
		droppedEntities.Add(float64(res.Dropped))
		slog.Debug("capacity truncation",
			"k", k,
			"selected", res.Selected,
			"dropped", res.Dropped,
		)
	}
	filterTotal.WithLabelValues(result).Inc()
	selectedEntities.Observe(float64(res.Selected))
	return res, nil
}

func (e *Engine) filterK(v ir.Value, mask []bool, k int) (Result, error) {
	if k < 0 {
		return Result{}, ir.Errorf(ir.ErrCodeShapeMismatch, "", "", "capacity must be non-negative, got %d", k)
	}
	leaves, def, err := e.tree.Flatten(v)
	if err != nil {
		return Result{}, err
	}
	if err := checkLeadingDim(leaves, def, len(mask)); err != nil {
		return Result{}, err
	}

	// dest[i] is entity i's slot, or the overflow segment k.
	idx := e.rt.PrefixSum(mask, true)
	dest := make([]int, len(mask))
	count := 0
	for i, m := range mask {
		dest[i] = k
		if m {
			count++
			if idx[i] < k {
				dest[i] = idx[i]
			}
		}
	}

	out := make([]*array.Array, len(leaves))
	for i, leaf := range leaves {
		if out[i], err = e.rt.SegmentSum(leaf, dest, k); err != nil {
			return Result{}, err
		}
	}
	compacted, err := e.tree.Unflatten(def, out)
	if err != nil {
		return Result{}, err
	}

	selected := min(count, k)
	fill := make([]bool, k)
	for j := range fill {
		fill[j] = j >= selected
	}
	return Result{
		Tree:     compacted,
		FillMask: fill,
		Selected: selected,
		Dropped:  count - selected,
	}, nil
}

// Fill replaces every entity slot where fillMask is true with the matching
// entity of def. v and def must have equal structure and leaf shapes.
func (e *Engine) Fill(v, def ir.Value, fillMask []bool) (ir.Value, error) {
	leaves, d, err := e.tree.Flatten(v)
	if err != nil {
		return nil, err
	}
	if err := checkLeadingDim(leaves, d, len(fillMask)); err != nil {
		return nil, err
	}
	return e.tree.Map2(func(x, y *array.Array) (*array.Array, error) {
		out, err := e.rt.Where(fillMask, x, y)
		if err != nil {
			return nil, ir.Errorf(ir.ErrCodeShapeMismatch, "", "", "fill: %v", err)
		}
		return out, nil
	}, v, def)
}

func checkLeadingDim(leaves []*array.Array, def *tree.Def, n int) error {
	var paths []string
	for i, leaf := range leaves {
		if leaf.Rank() > 0 && leaf.Len() == n {
			continue
		}
		if paths == nil {
			paths = def.LeafPaths()
		}
		if leaf.Rank() == 0 {
			return ir.Errorf(ir.ErrCodeShapeMismatch, "", paths[i], "scalar leaf has no entity axis")
		}
		return ir.Errorf(ir.ErrCodeShapeMismatch, "", paths[i], "leading dimension %d, want %d", leaf.Len(), n)
	}
	return nil
}

// FilterK compacts using the default engine.
func FilterK(v ir.Value, mask []bool, k int) (Result, error) {
	return defaultEngine.FilterK(v, mask, k)
}

// Fill fills unfilled slots using the default engine.
func Fill(v, def ir.Value, fillMask []bool) (ir.Value, error) {
	return defaultEngine.Fill(v, def, fillMask)
}
