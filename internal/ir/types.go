package ir

import (
	"fmt"
	"strings"

	"github.com/roach88/simtree/internal/array"
)

// Kind identifies a declared type shape.
type Kind uint8

const (
	KindArray Kind = iota + 1
	KindHostArray
	KindScalar
	KindEnum
	KindNull
	KindOpaque
	KindRecord
	KindSeq
	KindMap
	KindUnion
)

// Type is a declared field type. The set of implementations is closed.
type Type interface {
	Kind() Kind
	String() string
}

// ArrayType is a numeric array managed by the array runtime.
// A zero DType accepts any dtype.
type ArrayType struct {
	DType array.DType
}

func (ArrayType) Kind() Kind { return KindArray }

func (t ArrayType) String() string {
	if t.DType == array.Invalid {
		return "array"
	}
	return "array<" + t.DType.String() + ">"
}

// HostArrayType is a plain host array used as configuration. It is static:
// carried as raw bytes plus dtype and shape.
type HostArrayType struct{}

func (HostArrayType) Kind() Kind     { return KindHostArray }
func (HostArrayType) String() string { return "host_array" }

// ScalarKind enumerates scalar types.
type ScalarKind uint8

const (
	ScalarBool ScalarKind = iota + 1
	ScalarInt
	ScalarFloat
	ScalarString
)

// ScalarType is a bool, int, float or string.
type ScalarType struct {
	Scalar ScalarKind
}

func (ScalarType) Kind() Kind { return KindScalar }

func (t ScalarType) String() string {
	switch t.Scalar {
	case ScalarBool:
		return "bool"
	case ScalarInt:
		return "int"
	case ScalarFloat:
		return "float"
	case ScalarString:
		return "string"
	}
	return "scalar?"
}

// Scalar type singletons.
var (
	BoolType   = ScalarType{Scalar: ScalarBool}
	IntType    = ScalarType{Scalar: ScalarInt}
	FloatType  = ScalarType{Scalar: ScalarFloat}
	StringType = ScalarType{Scalar: ScalarString}
)

// EnumType is a closed set of named members.
type EnumType struct {
	Name   string
	Values []string
}

func (EnumType) Kind() Kind { return KindEnum }

func (t EnumType) String() string {
	return "enum(" + strings.Join(t.Values, ",") + ")"
}

// Has reports whether name is a member of the enum.
func (t EnumType) Has(name string) bool {
	for _, v := range t.Values {
		if v == name {
			return true
		}
	}
	return false
}

// NullType admits only Null. It is mostly used inside Optional.
type NullType struct{}

func (NullType) Kind() Kind     { return KindNull }
func (NullType) String() string { return "null" }

// OpaqueType is an application value the core cannot inspect. It is static
// metadata; Hashable declares that values provide a stable byte form via
// encoding.BinaryMarshaler.
type OpaqueType struct {
	Tag      string
	Hashable bool
}

func (OpaqueType) Kind() Kind { return KindOpaque }

func (t OpaqueType) String() string { return "opaque(" + t.Tag + ")" }

// SeqType is a homogeneous list.
type SeqType struct {
	Elem Type
}

func (SeqType) Kind() Kind { return KindSeq }

func (t SeqType) String() string { return "list<" + t.Elem.String() + ">" }

// MapType is a string-keyed mapping with homogeneous values.
type MapType struct {
	Elem Type
}

func (MapType) Kind() Kind { return KindMap }

func (t MapType) String() string { return "map<" + t.Elem.String() + ">" }

// UnionType admits a value conforming to any variant.
type UnionType struct {
	Variants []Type
}

func (UnionType) Kind() Kind { return KindUnion }

func (t UnionType) String() string {
	parts := make([]string, len(t.Variants))
	for i, v := range t.Variants {
		parts[i] = v.String()
	}
	return strings.Join(parts, " | ")
}

// Optional returns the union of t and null.
func Optional(t Type) Type {
	return UnionType{Variants: []Type{t, NullType{}}}
}

// Field is a declared record field. A nil Default makes the field required.
type Field struct {
	Name    string
	Type    Type
	Default Value
}

// RecordType is a frozen composite type with ordered, named fields.
type RecordType struct {
	Name   string
	Fields []Field
}

func (*RecordType) Kind() Kind { return KindRecord }

func (t *RecordType) String() string { return t.Name }

// NewRecordType creates a record type, validating field names and types.
func NewRecordType(name string, fields ...Field) (*RecordType, error) {
	rt := &RecordType{Name: name, Fields: fields}
	if err := rt.Validate(); err != nil {
		return nil, err
	}
	return rt, nil
}

// MustRecordType is like NewRecordType but panics on error.
// Use only in tests or package-level fixture declarations.
func MustRecordType(name string, fields ...Field) *RecordType {
	rt, err := NewRecordType(name, fields...)
	if err != nil {
		panic(err)
	}
	return rt
}

// Validate checks the record declaration: non-empty name, unique non-empty
// field names, non-nil types and conforming defaults.
func (t *RecordType) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("record type name is required")
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("record %s: empty field name", t.Name)
		}
		if strings.Contains(f.Name, ".") {
			return fmt.Errorf("record %s: field name %q must not contain '.'", t.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("record %s: duplicate field %q", t.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Type == nil {
			return fmt.Errorf("record %s: field %q has no type", t.Name, f.Name)
		}
		if f.Default != nil && !Conforms(f.Type, f.Default) {
			return fmt.Errorf("record %s: default for field %q does not conform to %s", t.Name, f.Name, f.Type)
		}
	}
	return nil
}

// Index returns the position of the named field, or -1.
func (t *RecordType) Index(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field declaration.
func (t *RecordType) Field(name string) (Field, bool) {
	if i := t.Index(name); i >= 0 {
		return t.Fields[i], true
	}
	return Field{}, false
}

// ContainsArray reports whether t is, or transitively contains through
// records, sequences, mappings or unions, a numeric array type.
func ContainsArray(t Type) bool {
	return containsArray(t, make(map[*RecordType]bool))
}

func containsArray(t Type, visiting map[*RecordType]bool) bool {
	switch tt := t.(type) {
	case ArrayType:
		return true
	case *RecordType:
		if visiting[tt] {
			return false
		}
		visiting[tt] = true
		for _, f := range tt.Fields {
			if containsArray(f.Type, visiting) {
				return true
			}
		}
		return false
	case SeqType:
		return containsArray(tt.Elem, visiting)
	case MapType:
		return containsArray(tt.Elem, visiting)
	case UnionType:
		for _, v := range tt.Variants {
			if containsArray(v, visiting) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Hashable reports whether values of t always have a canonical encoding.
func Hashable(t Type) bool {
	return hashable(t, make(map[*RecordType]bool))
}

func hashable(t Type, visiting map[*RecordType]bool) bool {
	switch tt := t.(type) {
	case ArrayType:
		return false
	case OpaqueType:
		return tt.Hashable
	case *RecordType:
		if visiting[tt] {
			return true
		}
		visiting[tt] = true
		for _, f := range tt.Fields {
			if !hashable(f.Type, visiting) {
				return false
			}
		}
		return true
	case SeqType:
		return hashable(tt.Elem, visiting)
	case MapType:
		return hashable(tt.Elem, visiting)
	case UnionType:
		for _, v := range tt.Variants {
			if !hashable(v, visiting) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// RecordsIn returns the record types directly reachable from t without
// passing through another record.
func RecordsIn(t Type) []*RecordType {
	var out []*RecordType
	var walk func(Type)
	walk = func(t Type) {
		switch tt := t.(type) {
		case *RecordType:
			out = append(out, tt)
		case SeqType:
			walk(tt.Elem)
		case MapType:
			walk(tt.Elem)
		case UnionType:
			for _, v := range tt.Variants {
				walk(v)
			}
		}
	}
	walk(t)
	return out
}

// SameType reports whether two declared types are structurally identical.
// Record types compare by name.
func SameType(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch at := a.(type) {
	case *RecordType:
		return at.Name == b.(*RecordType).Name
	case OpaqueType:
		return at == b.(OpaqueType)
	case SeqType:
		return SameType(at.Elem, b.(SeqType).Elem)
	case MapType:
		return SameType(at.Elem, b.(MapType).Elem)
	case UnionType:
		bt := b.(UnionType)
		if len(at.Variants) != len(bt.Variants) {
			return false
		}
		for i := range at.Variants {
			if !SameType(at.Variants[i], bt.Variants[i]) {
				return false
			}
		}
		return true
	default:
		return a.String() == b.String()
	}
}
