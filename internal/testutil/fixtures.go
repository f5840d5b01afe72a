// Package testutil provides shared record fixtures for package tests.
//
// The fixtures model a small rigid-body scene: a Model owns a list of
// Bodies, each Body owns a list of Geoms, and Contacts is an entity-axis
// record whose every dynamic leaf is indexed by contact.
package testutil

import (
	"github.com/roach88/simtree/internal/array"
	"github.com/roach88/simtree/internal/ir"
)

// ShapeEnum enumerates geom shapes.
var ShapeEnum = ir.EnumType{Name: "Shape", Values: []string{"sphere", "box", "capsule"}}

// IntegratorEnum enumerates model integrators.
var IntegratorEnum = ir.EnumType{Name: "Integrator", Values: []string{"euler", "rk4"}}

// Geom has one dynamic field (size) and two static ones.
var Geom = ir.MustRecordType("Geom",
	ir.Field{Name: "size", Type: ir.ArrayType{}},
	ir.Field{Name: "friction", Type: ir.FloatType},
	ir.Field{Name: "shape", Type: ShapeEnum, Default: ir.Enum("sphere")},
)

// Body nests a list of Geoms.
var Body = ir.MustRecordType("Body",
	ir.Field{Name: "mass", Type: ir.ArrayType{}},
	ir.Field{Name: "name", Type: ir.StringType},
	ir.Field{Name: "geoms", Type: ir.SeqType{Elem: Geom}},
	ir.Field{Name: "fixed", Type: ir.BoolType, Default: ir.Bool(false)},
)

// Model is the root fixture: static configuration plus a list of Bodies.
var Model = ir.MustRecordType("Model",
	ir.Field{Name: "name", Type: ir.StringType},
	ir.Field{Name: "timestep", Type: ir.FloatType},
	ir.Field{Name: "gravity", Type: ir.HostArrayType{}},
	ir.Field{Name: "integrator", Type: IntegratorEnum, Default: ir.Enum("euler")},
	ir.Field{Name: "bodies", Type: ir.SeqType{Elem: Body}},
)

// Contacts holds per-contact arrays sharing a leading entity axis.
var Contacts = ir.MustRecordType("Contacts",
	ir.Field{Name: "dist", Type: ir.ArrayType{DType: array.Float64}},
	ir.Field{Name: "pos", Type: ir.ArrayType{DType: array.Float64}},
	ir.Field{Name: "geom", Type: ir.ArrayType{DType: array.Int32}},
	ir.Field{Name: "condim", Type: ir.IntType, Default: ir.Int(3)},
	ir.Field{Name: "solref", Type: ir.HostArrayType{}},
)

// Types returns every fixture record type, leaves first.
func Types() []*ir.RecordType {
	return []*ir.RecordType{Geom, Body, Model, Contacts}
}

// NewGeom builds a Geom with the given size vector and friction.
func NewGeom(friction float64, size ...float64) *ir.Record {
	return ir.MustRecord(Geom,
		ir.F("size", ir.ArrayOf(array.FromFloat64s(size...))),
		ir.F("friction", ir.Float(friction)),
	)
}

// NewBody builds a Body with a scalar mass.
func NewBody(name string, mass float64, geoms ...*ir.Record) *ir.Record {
	list := make(ir.List, len(geoms))
	for i, g := range geoms {
		list[i] = g
	}
	return ir.MustRecord(Body,
		ir.F("mass", ir.ArrayOf(array.FromFloat64s(mass))),
		ir.F("name", ir.String(name)),
		ir.F("geoms", list),
	)
}

// NewModel builds a Model with standard gravity.
func NewModel(name string, bodies ...*ir.Record) *ir.Record {
	list := make(ir.List, len(bodies))
	for i, b := range bodies {
		list[i] = b
	}
	return ir.MustRecord(Model,
		ir.F("name", ir.String(name)),
		ir.F("timestep", ir.Float(0.002)),
		ir.F("gravity", ir.HostArrayOf(array.FromFloat64s(0, 0, -9.81))),
		ir.F("bodies", list),
	)
}

// NewContacts builds a Contacts record with one entity per dist value.
// Row i has pos (d, 2d, 3d) and geom id i.
func NewContacts(dist ...float64) *ir.Record {
	n := len(dist)
	pos := make([]float64, 0, 3*n)
	geom := make([]int32, n)
	for i, d := range dist {
		pos = append(pos, d, 2*d, 3*d)
		geom[i] = int32(i)
	}
	return ir.MustRecord(Contacts,
		ir.F("dist", ir.ArrayOf(array.FromFloat64s(dist...))),
		ir.F("pos", ir.ArrayOf(array.MustNew(array.Float64, []int{n, 3}, pos))),
		ir.F("geom", ir.ArrayOf(array.FromInt32s(geom...))),
		ir.F("solref", ir.HostArrayOf(array.FromFloat64s(0.02, 1))),
	)
}

// Floats extracts the data of an array-valued field.
func Floats(rec *ir.Record, field string) []float64 {
	return rec.MustGet(field).(ir.Array).Data()
}
