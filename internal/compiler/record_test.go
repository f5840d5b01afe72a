package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simtree/internal/ir"
)

const sceneCUE = `
record: Model: {
	name:       "string"
	timestep:   "float"
	gravity:    "host_array"
	integrator: "enum(euler, rk4)"
	bodies:     "list<Body>"
}

record: Body: {
	mass:  "array"
	name:  "string"
	geoms: "list<Geom>"
	fixed: "bool"
}

record: Geom: {
	size:     "array<f64>"
	friction: "float"
	mesh:     "?opaque(mesh, hashable)"
}
`

func TestCompileRecordsBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(sceneCUE)
	require.NoError(t, v.Err())

	types, err := CompileRecords(v)
	require.NoError(t, err)
	require.Len(t, types, 3)

	model, body, geom := types[0], types[1], types[2]
	assert.Equal(t, "Model", model.Name)
	assert.Equal(t, "Body", body.Name)
	assert.Equal(t, "Geom", geom.Name)

	names := func(rt *ir.RecordType) []string {
		var out []string
		for _, f := range rt.Fields {
			out = append(out, f.Name)
		}
		return out
	}
	assert.Equal(t, []string{"name", "timestep", "gravity", "integrator", "bodies"}, names(model))
	assert.Equal(t, []string{"mass", "name", "geoms", "fixed"}, names(body))

	bodies, ok := model.Field("bodies")
	require.True(t, ok)
	seq, ok := bodies.Type.(ir.SeqType)
	require.True(t, ok)
	assert.Same(t, body, seq.Elem, "forward reference resolves to the declared record")

	integrator, _ := model.Field("integrator")
	assert.Equal(t, ir.EnumType{Name: "Model.integrator", Values: []string{"euler", "rk4"}}, integrator.Type)

	mesh, _ := geom.Field("mesh")
	assert.Equal(t, "opaque(mesh) | null", mesh.Type.String())
	assert.True(t, ir.Hashable(mesh.Type))
}

func TestCompileRecordsRecursive(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		record: Node: {
			value:    "array"
			children: "list<Node>"
		}
	`)

	types, err := CompileRecords(v)
	require.NoError(t, err)
	require.Len(t, types, 1)

	children, _ := types[0].Field("children")
	assert.Same(t, types[0], children.Type.(ir.SeqType).Elem)
	assert.True(t, ir.ContainsArray(children.Type))
}

func TestCompileRecordsMissingRoot(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: 1`)

	_, err := CompileRecords(v)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "record", ce.Field)
}

func TestCompileRecordsNonStringType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`record: Bad: { size: 3 }`)

	_, err := CompileRecords(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad.size")
	assert.Contains(t, err.Error(), "string type expression")
}

func TestCompileRecordsValidationFailure(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`record: Body: { geoms: "list<Geom>" }`)

	_, err := CompileRecords(v)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ErrUnknownTypeRef, ve.Code)
	assert.Equal(t, "Body.geoms", ve.Field)
}

func TestCompileRecordsCUEError(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`record: Body: { mass: "array" & "int" }`)

	_, err := CompileRecords(v)
	require.Error(t, err)
}

func TestBuildRecordsFromDecls(t *testing.T) {
	decls := []RecordDecl{
		{Name: "Pair", Fields: []FieldDecl{
			{Name: "left", Type: "Leaf"},
			{Name: "right", Type: "?Leaf"},
		}},
		{Name: "Leaf", Fields: []FieldDecl{{Name: "x", Type: "array<i32>"}}},
	}

	types, err := BuildRecords(decls)
	require.NoError(t, err)
	require.Len(t, types, 2)

	left, _ := types[0].Field("left")
	assert.Same(t, types[1], left.Type)
}
