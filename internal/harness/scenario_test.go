package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalCUE = `
record: Point: {
	x: "array<f64>"
}
`

// writeScenario writes a schema and scenario into a temp dir and returns the
// scenario path.
func writeScenario(t *testing.T, scenarioYAML string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "point.cue"), []byte(minimalCUE), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0644))
	return path
}

func TestLoadScenario_ResolvesSchemaRelativeToFile(t *testing.T) {
	path := writeScenario(t, `
name: minimal
description: Minimal scenario
schema: point.cue
record: Point
instance:
  x: [1, 2]
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "point.cue"), s.Schema)
	assert.Equal(t, "Point", s.Record)
	assert.Empty(t, s.Steps)
}

func TestLoadScenario_Steps(t *testing.T) {
	path := writeScenario(t, `
name: steps
description: Every step kind
schema: point.cue
record: Point
instance:
  x: [1, 2]
steps:
  - replace: { path: x, value: [3, 4] }
  - filter_k: { mask: [true, false], k: 1 }
  - fill: { default: { x: [0] } }
expect:
  selected: 1
  fill_mask: [false]
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, StepReplace, s.Steps[0].Kind())
	assert.Equal(t, StepFilterK, s.Steps[1].Kind())
	assert.Equal(t, StepFill, s.Steps[2].Kind())
	assert.Equal(t, []bool{true, false}, s.Steps[1].FilterK.Mask)
	require.NotNil(t, s.Expect.Selected)
	assert.Equal(t, 1, *s.Expect.Selected)
	assert.Nil(t, s.Expect.Dropped)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: a\ndescription: d\nschema: point.cue\nrecord: Point\ninstance: {}\nstep: []\n",
			wantErr: "field step not found",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nschema: point.cue\nrecord: Point\ninstance: {}\n",
			wantErr: "name is required",
		},
		{
			name:    "bad name",
			yaml:    "name: a b\ndescription: d\nschema: point.cue\nrecord: Point\ninstance: {}\n",
			wantErr: "must not contain spaces",
		},
		{
			name:    "missing record",
			yaml:    "name: a\ndescription: d\nschema: point.cue\ninstance: {}\n",
			wantErr: "record is required",
		},
		{
			name:    "missing instance",
			yaml:    "name: a\ndescription: d\nschema: point.cue\nrecord: Point\n",
			wantErr: "instance is required",
		},
		{
			name:    "two kinds in one step",
			yaml:    "name: a\ndescription: d\nschema: point.cue\nrecord: Point\ninstance: {}\nsteps:\n  - replace: { path: x, value: 1 }\n    filter_k: { mask: [], k: 0 }\n",
			wantErr: "steps[0]: exactly one of",
		},
		{
			name:    "each without list",
			yaml:    "name: a\ndescription: d\nschema: point.cue\nrecord: Point\ninstance: {}\nsteps:\n  - replace: { path: x, value: 1, each: true }\n",
			wantErr: "each requires a list value",
		},
		{
			name:    "filter without mask",
			yaml:    "name: a\ndescription: d\nschema: point.cue\nrecord: Point\ninstance: {}\nsteps:\n  - filter_k: { k: 1 }\n",
			wantErr: "mask is required",
		},
		{
			name:    "unknown error code",
			yaml:    "name: a\ndescription: d\nschema: point.cue\nrecord: Point\ninstance: {}\nexpect: { error: BOOM }\n",
			wantErr: `unknown error code "BOOM"`,
		},
		{
			name:    "missing schema file",
			yaml:    "name: a\ndescription: d\nschema: nope.cue\nrecord: Point\ninstance: {}\n",
			wantErr: "schema file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarios_SortedByPath(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"contacts_bad_mask",
		"contacts_filter",
		"contacts_truncate",
		"scene_each_mismatch",
		"scene_replace",
	}, names)
}
