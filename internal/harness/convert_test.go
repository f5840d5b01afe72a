package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simtree/internal/array"
	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/store"
	"github.com/roach88/simtree/internal/treepath"
)

var (
	testGeom = ir.MustRecordType("Geom",
		ir.Field{Name: "size", Type: ir.ArrayType{DType: array.Float64}},
		ir.Field{Name: "friction", Type: ir.FloatType, Default: ir.Float(1)},
	)
	testCapsule = ir.MustRecordType("Capsule",
		ir.Field{Name: "radius", Type: ir.FloatType},
	)
	testBody = ir.MustRecordType("Body",
		ir.Field{Name: "mass", Type: ir.ArrayType{}},
		ir.Field{Name: "geoms", Type: ir.SeqType{Elem: ir.UnionType{Variants: []ir.Type{testGeom, testCapsule}}}},
		ir.Field{Name: "mode", Type: ir.EnumType{Name: "Mode", Values: []string{"free", "fixed"}}},
		ir.Field{Name: "tags", Type: ir.MapType{Elem: ir.IntType}, Default: ir.Map{}},
		ir.Field{Name: "mesh", Type: ir.Optional(ir.OpaqueType{Tag: "mesh", Hashable: true}), Default: ir.Null{}},
	)
)

func TestConvertScalars(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		typ  ir.Type
		want ir.Value
	}{
		{"bool", true, ir.BoolType, ir.Bool(true)},
		{"int", 7, ir.IntType, ir.Int(7)},
		{"float", 2.5, ir.FloatType, ir.Float(2.5)},
		{"int as float", 3, ir.FloatType, ir.Float(3)},
		{"string", "x", ir.StringType, ir.String("x")},
		{"enum", "rk4", ir.EnumType{Values: []string{"euler", "rk4"}}, ir.Enum("rk4")},
		{"null", nil, ir.NullType{}, ir.Null{}},
		{"opaque", "cube", ir.OpaqueType{Tag: "mesh"}, ir.Opaque{Tag: "mesh", V: store.RawOpaque("cube")}},
		{"optional null", nil, ir.Optional(ir.IntType), ir.Null{}},
		{"optional int", 4, ir.Optional(ir.IntType), ir.Int(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convert(tt.raw, tt.typ)
			require.NoError(t, err)
			assert.True(t, ir.Equal(tt.want, got), "got %s", ir.Describe(got))
		})
	}
}

func TestConvertRejectsMismatches(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		typ  ir.Type
	}{
		{"string as int", "7", ir.IntType},
		{"float as int", 1.5, ir.IntType},
		{"enum member", "rk2", ir.EnumType{Values: []string{"rk4"}}},
		{"null", 0, ir.NullType{}},
		{"list", "x", ir.SeqType{Elem: ir.IntType}},
		{"map", []any{}, ir.MapType{Elem: ir.IntType}},
		{"record", 3, testGeom},
		{"ragged array", []any{[]any{1, 2}, []any{3}}, ir.ArrayType{}},
		{"array of strings", []any{"a"}, ir.ArrayType{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convert(tt.raw, tt.typ)
			require.Error(t, err)
		})
	}
}

func TestConvertArrays(t *testing.T) {
	got, err := convert([]any{[]any{1, 2, 3}, []any{4, 5, 6}}, ir.ArrayType{})
	require.NoError(t, err)
	a := got.(ir.Array)
	assert.Equal(t, array.Float64, a.DType())
	assert.Equal(t, []int{2, 3}, a.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, a.Data())

	got, err = convert([]any{1.7, -2.2}, ir.ArrayType{DType: array.Int32})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -2}, got.(ir.Array).Data(), "ints truncate")

	got, err = convert(map[string]any{"dtype": "bool", "data": []any{true, false}}, ir.ArrayType{})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got.(ir.Array).Bools())

	got, err = convert(2.5, ir.ArrayType{})
	require.NoError(t, err)
	assert.Equal(t, 0, got.(ir.Array).Rank())

	got, err = convert([]any{}, ir.ArrayType{})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, got.(ir.Array).Shape())

	got, err = convert([]any{0, 0, -9.81}, ir.HostArrayType{})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got.(ir.HostArray).Shape())

	_, err = convert(map[string]any{"dtype": "i32", "data": []any{1}}, ir.ArrayType{DType: array.Float64})
	assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch))
}

func TestBuildRecord(t *testing.T) {
	rec, err := buildRecord(testBody, map[string]any{
		"mass": []any{2.0},
		"geoms": []any{
			map[string]any{"size": []any{0.1}},
			map[string]any{"$record": "Capsule", "radius": 0.3},
		},
		"mode": "fixed",
		"tags": map[string]any{"a": 1},
		"mesh": "cube",
	})
	require.NoError(t, err)

	geoms := rec.MustGet("geoms").(ir.List)
	require.Len(t, geoms, 2)
	assert.Equal(t, "Geom", geoms[0].(*ir.Record).Type().Name)
	assert.Equal(t, ir.Float(1), geoms[0].(*ir.Record).MustGet("friction"), "default applied")
	assert.Equal(t, "Capsule", geoms[1].(*ir.Record).Type().Name)
	assert.True(t, ir.Equal(ir.Map{"a": ir.Int(1)}, rec.MustGet("tags")))
	assert.True(t, ir.Equal(ir.Opaque{Tag: "mesh", V: store.RawOpaque("cube")}, rec.MustGet("mesh")))
}

func TestBuildRecordErrors(t *testing.T) {
	_, err := buildRecord(testGeom, map[string]any{"size": []any{1}, "color": "red"})
	assert.True(t, ir.IsUnknownField(err))

	_, err = buildRecord(testGeom, map[string]any{"friction": 0.5})
	assert.True(t, ir.HasCode(err, ir.ErrCodeMissingField))

	_, err = buildRecord(testGeom, map[string]any{"$record": "Capsule", "size": []any{1}})
	assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch))

	_, err = convert(map[string]any{"$record": "Sphere"}, ir.UnionType{Variants: []ir.Type{testGeom, testCapsule}})
	assert.True(t, ir.HasCode(err, ir.ErrCodeTypeMismatch))
}

func TestTypeAtAndValueAt(t *testing.T) {
	rec, err := buildRecord(testBody, map[string]any{
		"mass": []any{2.0},
		"geoms": []any{
			map[string]any{"size": []any{0.1}, "friction": 0.4},
			map[string]any{"$record": "Capsule", "radius": 0.3},
			map[string]any{"size": []any{0.2}, "friction": 0.6},
		},
		"mode": "free",
	})
	require.NoError(t, err)
	p := treepath.MustParse("geoms.friction")

	leaf, ok := typeAt(testBody, p, false)
	require.True(t, ok)
	assert.Equal(t, ir.FloatType, leaf)

	gathered, ok := typeAt(testBody, p, true)
	require.True(t, ok)
	assert.Equal(t, ir.SeqType{Elem: ir.FloatType}, gathered)

	got, ok := valueAt(rec, p)
	require.True(t, ok)
	assert.True(t, ir.Equal(ir.List{ir.Float(0.4), ir.Float(0.6)}, got), "capsule skipped")

	_, ok = typeAt(testBody, treepath.MustParse("geoms.color"), true)
	assert.False(t, ok)
	_, ok = valueAt(rec, treepath.MustParse("mode.name"))
	assert.False(t, ok)
}
