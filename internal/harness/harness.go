package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/simtree/internal/compact"
	"github.com/roach88/simtree/internal/compiler"
	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/registry"
	"github.com/roach88/simtree/internal/store"
	"github.com/roach88/simtree/internal/testutil"
	"github.com/roach88/simtree/internal/tree"
	"github.com/roach88/simtree/internal/treepath"
)

// Harness is the test execution engine.
// Every scenario gets its own registry, so schemas from different
// scenarios never collide, and its own in-memory store.
type Harness struct {
	tree     *tree.Runtime
	replacer *treepath.Replacer
	engine   *compact.Engine
	store    *store.Store
	capacity int
	logger   *slog.Logger
}

// runState is the record being transformed plus what the last filter_k
// reported.
type runState struct {
	rec      *ir.Record
	filtered bool
	fillMask []bool
	selected int
	dropped  int
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	workers  int
	capacity int
}

// WithWorkers bounds the compaction engine's batch parallelism. Default: 1.
func WithWorkers(n int) Option {
	return func(c *runConfig) { c.workers = n }
}

// WithCapacity sets the k used by filter_k steps that leave k out.
// Default: 0, which makes k mandatory.
func WithCapacity(k int) Option {
	return func(c *runConfig) { c.capacity = k }
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Compile the CUE schema and register its record types
// 2. Open a fresh in-memory store with deterministic ids and seqs
// 3. Build the instance and apply each step in order
// 4. Check expectations and round-trip the final record through the store
//
// The returned error reports problems with the scenario itself (schema,
// record name). Step failures and unmet expectations land in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg, root, err := prepare(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:",
		store.WithRegistry(reg),
		store.WithClock(testutil.NewDeterministicClock()),
		store.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	rt := tree.New(reg)
	h := &Harness{
		tree:     rt,
		replacer: treepath.New(reg),
		engine:   compact.New(compact.WithTree(rt), compact.WithWorkers(cfg.workers)),
		store:    st,
		capacity: cfg.capacity,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario, root), nil
}

// Instance compiles the scenario's schema into a fresh registry and builds
// the instance record without running any step.
func Instance(scenario *Scenario) (*ir.Record, *registry.Registry, error) {
	reg, root, err := prepare(scenario)
	if err != nil {
		return nil, nil, err
	}
	rec, err := buildRecord(root, scenario.Instance)
	if err != nil {
		return nil, nil, fmt.Errorf("instance: %w", err)
	}
	return rec, reg, nil
}

// prepare compiles and registers the schema and resolves the root record.
func prepare(scenario *Scenario) (*registry.Registry, *ir.RecordType, error) {
	types, err := LoadSchema(scenario.Schema)
	if err != nil {
		return nil, nil, err
	}

	reg := registry.New()
	for _, rt := range types {
		if _, err := reg.Register(rt); err != nil {
			return nil, nil, fmt.Errorf("register %s: %w", rt.Name, err)
		}
	}
	class, ok := reg.Lookup(scenario.Record)
	if !ok {
		return nil, nil, fmt.Errorf("record %q is not declared in %s", scenario.Record, scenario.Schema)
	}
	return reg, class.Type, nil
}

// LoadSchema compiles the record declarations in a CUE file.
func LoadSchema(path string) ([]*ir.RecordType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", path, err)
	}
	types, err := compiler.CompileRecords(v)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return types, nil
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, root *ir.RecordType) *Result {
	result := NewResult()

	var state runState
	rec, stepErr := buildRecord(root, scenario.Instance)
	if stepErr != nil {
		stepErr = fmt.Errorf("instance: %w", stepErr)
	} else {
		state.rec = rec
		for i, step := range scenario.Steps {
			if err := h.apply(&state, step); err != nil {
				stepErr = fmt.Errorf("steps[%d] %s: %w", i, step.Kind(), err)
				break
			}
			h.logger.Debug("step applied", "scenario", scenario.Name, "index", i, "kind", step.Kind())
		}
	}

	checkError(result, scenario.Expect.Error, stepErr)
	if state.rec == nil {
		return result
	}
	if stepErr == nil {
		checkExpect(result, scenario.Expect, &state)
	}

	snap, err := h.snapshot(ctx, scenario, &state)
	if err != nil {
		result.AddError(err.Error())
		return result
	}
	if stepErr != nil {
		snap.Error = string(errorCode(stepErr))
	}
	result.Snapshot = snap
	return result
}

func (h *Harness) apply(state *runState, step Step) error {
	switch {
	case step.Replace != nil:
		return h.replace(state, step.Replace)
	case step.FilterK != nil:
		k := h.capacity
		if step.FilterK.K != nil {
			k = *step.FilterK.K
		} else if k == 0 {
			return fmt.Errorf("k is required when no default capacity is configured")
		}
		res, err := h.engine.FilterK(state.rec, step.FilterK.Mask, k)
		if err != nil {
			return err
		}
		rec, ok := res.Tree.(*ir.Record)
		if !ok {
			return fmt.Errorf("filter_k returned %T, not a record", res.Tree)
		}
		state.rec = rec
		state.filtered = true
		state.fillMask = res.FillMask
		state.selected = res.Selected
		state.dropped = res.Dropped
		return nil
	case step.Fill != nil:
		if !state.filtered {
			return fmt.Errorf("fill needs a preceding filter_k")
		}
		def, err := buildRecord(state.rec.Type(), step.Fill.Default)
		if err != nil {
			return fmt.Errorf("default: %w", err)
		}
		out, err := h.engine.Fill(state.rec, def, state.fillMask)
		if err != nil {
			return err
		}
		state.rec = out.(*ir.Record)
		return nil
	}
	return fmt.Errorf("empty step")
}

func (h *Harness) replace(state *runState, s *ReplaceStep) error {
	rt := state.rec.Type()
	p, err := treepath.Parse(s.Path)
	if err != nil {
		return err
	}
	if err := p.Validate(rt); err != nil {
		return err
	}
	leaf, ok := typeAt(rt, p, false)
	if !ok {
		return ir.NewUnknownFieldError(rt.Name, s.Path)
	}

	var rec *ir.Record
	if s.Each {
		items, _ := s.Value.([]any)
		vs := make(ir.List, len(items))
		for i, item := range items {
			if vs[i], err = convert(item, leaf); err != nil {
				return fmt.Errorf("value[%d]: %w", i, err)
			}
		}
		rec, err = h.replacer.ReplaceEach(state.rec, s.Path, vs)
	} else {
		var v ir.Value
		if v, err = convert(s.Value, leaf); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		rec, err = h.replacer.Replace(state.rec, s.Path, v)
	}
	if err != nil {
		return err
	}
	state.rec = rec
	return nil
}

func checkError(result *Result, want string, got error) {
	switch {
	case want == "" && got != nil:
		result.AddError(got.Error())
	case want != "" && got == nil:
		result.AddError(fmt.Sprintf("expected error %s, but every step succeeded", want))
	case want != "" && !ir.HasCode(got, ir.ErrorCode(want)):
		result.AddError(fmt.Sprintf("expected error %s, got: %v", want, got))
	}
}

func checkExpect(result *Result, want Expect, state *runState) {
	if want.FillMask != nil && !slices.Equal(want.FillMask, state.fillMask) {
		result.AddError(fmt.Sprintf("fill_mask: expected %v, got %v", want.FillMask, state.fillMask))
	}
	if want.Selected != nil || want.Dropped != nil {
		if !state.filtered {
			result.AddError("selected/dropped expected but no filter_k step ran")
		} else {
			if want.Selected != nil && *want.Selected != state.selected {
				result.AddError(fmt.Sprintf("selected: expected %d, got %d", *want.Selected, state.selected))
			}
			if want.Dropped != nil && *want.Dropped != state.dropped {
				result.AddError(fmt.Sprintf("dropped: expected %d, got %d", *want.Dropped, state.dropped))
			}
		}
	}

	paths := make([]string, 0, len(want.Fields))
	for p := range want.Fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if msg := checkField(state.rec, path, want.Fields[path]); msg != "" {
			result.AddError(msg)
		}
	}
}

func checkField(rec *ir.Record, path string, raw any) string {
	p, err := treepath.Parse(path)
	if err != nil {
		return fmt.Sprintf("fields[%s]: %v", path, err)
	}
	t, ok := typeAt(rec.Type(), p, true)
	if !ok {
		return fmt.Sprintf("fields[%s]: no such field in %s", path, rec.Type().Name)
	}
	want, err := convert(raw, t)
	if err != nil {
		return fmt.Sprintf("fields[%s]: expected value: %v", path, err)
	}
	got, ok := valueAt(rec, p)
	if !ok {
		return fmt.Sprintf("fields[%s]: no value at path", path)
	}
	if !ir.Equal(want, got) {
		return fmt.Sprintf("fields[%s]: expected %s, got %s", path, ir.Describe(want), ir.Describe(got))
	}
	return ""
}

// snapshot stores the final record, reads it back and renders its leaves.
func (h *Harness) snapshot(ctx context.Context, scenario *Scenario, state *runState) (*Snapshot, error) {
	id, err := h.store.SaveSnapshot(ctx, state.rec, scenario.Name)
	if err != nil {
		return nil, err
	}
	stored, err := h.store.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if !stored.Record.Equal(state.rec) {
		return nil, fmt.Errorf("snapshot %s: stored record differs from the final record", id)
	}

	leaves, def, err := h.tree.Flatten(stored.Record)
	if err != nil {
		return nil, err
	}
	paths := def.LeafPaths()

	snap := &Snapshot{
		Scenario: scenario.Name,
		Record:   stored.RecordType,
		Leaves:   make([]LeafSnapshot, len(leaves)),
	}
	if state.filtered {
		snap.Selected = &state.selected
		snap.Dropped = &state.dropped
		snap.FillMask = state.fillMask
	}
	for i, leaf := range leaves {
		snap.Leaves[i] = LeafSnapshot{
			Path:  paths[i],
			DType: leaf.DType().String(),
			Shape: leaf.Shape(),
			Data:  leaf.Data(),
		}
		if snap.Leaves[i].Shape == nil {
			snap.Leaves[i].Shape = []int{}
		}
		if snap.Leaves[i].Data == nil {
			snap.Leaves[i].Data = []float64{}
		}
	}
	return snap, nil
}

func errorCode(err error) ir.ErrorCode {
	var e *ir.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN"
}
