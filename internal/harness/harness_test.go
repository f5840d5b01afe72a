package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simtree/internal/ir"
)

func TestRun_ScenarioFiles(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Passed, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.NotNil(t, result.Snapshot)
		})
	}
}

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return s
}

func TestRun_ReportsUnmetExpectations(t *testing.T) {
	s := loadTestScenario(t, "contacts_truncate")
	selected, dropped := 3, 0
	s.Expect.Selected = &selected
	s.Expect.Dropped = &dropped
	s.Expect.FillMask = []bool{true, true}
	s.Expect.Fields = map[string]any{"geom": []any{9, 9}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, []string{
		"fill_mask: expected [true true], got [false false]",
		"selected: expected 3, got 2",
		"dropped: expected 0, got 1",
		"fields[geom]: expected i32[2][9 9], got i32[2][1 2]",
	}, result.Errors)
}

func TestRun_StepErrorWithoutExpectation(t *testing.T) {
	s := loadTestScenario(t, "contacts_bad_mask")
	s.Expect.Error = ""

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0] filter_k")
	require.NotNil(t, result.Snapshot)
	assert.Equal(t, "SHAPE_MISMATCH", result.Snapshot.Error)
}

func TestRun_WrongExpectedError(t *testing.T) {
	s := loadTestScenario(t, "contacts_bad_mask")
	s.Expect.Error = "LENGTH_MISMATCH"

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error LENGTH_MISMATCH, got:")
}

func TestRun_ExpectedErrorNeverRaised(t *testing.T) {
	s := loadTestScenario(t, "contacts_truncate")
	s.Expect = Expect{Error: "SHAPE_MISMATCH"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, []string{"expected error SHAPE_MISMATCH, but every step succeeded"}, result.Errors)
}

func TestRun_FillWithoutFilter(t *testing.T) {
	s := loadTestScenario(t, "contacts_filter")
	s.Steps = s.Steps[2:]
	s.Expect = Expect{}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "fill needs a preceding filter_k")
}

func TestRun_FillStructureMismatch(t *testing.T) {
	s := loadTestScenario(t, "contacts_filter")
	// The default keeps condim 3 while the filtered record has condim 4.
	s.Steps[2].Fill.Default["condim"] = 3
	s.Expect = Expect{Error: "STRUCTURE_MISMATCH"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Passed, "errors: %v", result.Errors)
}

func TestRun_InstanceErrors(t *testing.T) {
	s := loadTestScenario(t, "contacts_truncate")
	delete(s.Instance, "condim")
	s.Expect = Expect{Error: "MISSING_FIELD"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Passed, "errors: %v", result.Errors)
	assert.Nil(t, result.Snapshot)
}

func TestRun_ReplaceUnknownPath(t *testing.T) {
	s := loadTestScenario(t, "scene_replace")
	s.Steps = []Step{{Replace: &ReplaceStep{Path: "bodies.weight", Value: []any{1.0}}}}
	s.Expect = Expect{Error: "UNKNOWN_FIELD"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Passed, "errors: %v", result.Errors)
}

func TestRun_UnknownRecord(t *testing.T) {
	s := loadTestScenario(t, "contacts_filter")
	s.Record = "Missing"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `record "Missing" is not declared`)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "scene_replace")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalSnapshot(first.Snapshot)
	require.NoError(t, err)
	b, err := MarshalSnapshot(second.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_SceneSnapshotLeaves(t *testing.T) {
	result, err := Run(loadTestScenario(t, "scene_replace"))
	require.NoError(t, err)
	require.NotNil(t, result.Snapshot)

	var paths []string
	for _, leaf := range result.Snapshot.Leaves {
		paths = append(paths, leaf.Path)
	}
	assert.Equal(t, []string{
		"bodies[0].mass",
		"bodies[0].geoms[0].size",
		"bodies[0].geoms[1].size",
		"bodies[1].mass",
		"bodies[1].geoms[0].size",
	}, paths)
	assert.Equal(t, []float64{3}, result.Snapshot.Leaves[0].Data)
	assert.Nil(t, result.Snapshot.Selected, "no filter_k ran")
}

func TestRun_DefaultCapacity(t *testing.T) {
	s := loadTestScenario(t, "contacts_truncate")
	s.Steps[0].FilterK.K = nil

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "k is required")

	result, err = Run(s, WithCapacity(2), WithWorkers(4))
	require.NoError(t, err)
	assert.True(t, result.Passed, "errors: %v", result.Errors)
}

func TestInstance(t *testing.T) {
	rec, reg, err := Instance(loadTestScenario(t, "contacts_filter"))
	require.NoError(t, err)
	assert.Equal(t, "Contacts", rec.Type().Name)
	assert.Equal(t, ir.Int(3), rec.MustGet("condim"), "steps are not applied")

	class, ok := reg.Lookup("Contacts")
	require.True(t, ok)
	assert.Equal(t, []string{"dist", "pos", "geom"}, class.Dynamic)
	assert.Equal(t, []string{"condim"}, class.Static)
}
