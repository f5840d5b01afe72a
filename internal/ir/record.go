package ir

import (
	"slices"
	"strings"
)

// Record is an immutable instance of a RecordType.
// All mutation goes through Replace, which returns a new record sharing the
// unchanged field values.
type Record struct {
	typ  *RecordType
	vals []Value // declared field order
}

func (*Record) value() {}

// Set is a (field name, value) pair for record construction and replacement.
type Set struct {
	Name  string
	Value Value
}

// F is a shorthand for Set.
// Example: NewRecord(body, F("mass", ArrayOf(m)), F("name", String("pole")))
func F(name string, v Value) Set {
	return Set{Name: name, Value: v}
}

// NewRecord creates a record of type rt from the given field values.
// Fields not set take their declared default; a field without a default
// must be set.
func NewRecord(rt *RecordType, sets ...Set) (*Record, error) {
	vals := make([]Value, len(rt.Fields))
	if err := applySets(rt, vals, sets); err != nil {
		return nil, err
	}
	for i, f := range rt.Fields {
		if vals[i] != nil {
			continue
		}
		if f.Default == nil {
			return nil, Errorf(ErrCodeMissingField, rt.Name, f.Name, "required field not set")
		}
		vals[i] = f.Default
	}
	return &Record{typ: rt, vals: vals}, nil
}

// MustRecord is like NewRecord but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecord(rt *RecordType, sets ...Set) *Record {
	r, err := NewRecord(rt, sets...)
	if err != nil {
		panic(err)
	}
	return r
}

// FromValues builds a record from one value per declared field, in order.
func FromValues(rt *RecordType, vals []Value) (*Record, error) {
	if len(vals) != len(rt.Fields) {
		return nil, NewLengthMismatchError(rt.Name, "", len(rt.Fields), len(vals))
	}
	for i, f := range rt.Fields {
		if !Conforms(f.Type, vals[i]) {
			return nil, Errorf(ErrCodeTypeMismatch, rt.Name, f.Name, "value %s does not conform to %s", Describe(vals[i]), f.Type)
		}
	}
	return &Record{typ: rt, vals: slices.Clone(vals)}, nil
}

// Replace returns a copy of r with the named fields overridden.
// r itself is never modified.
func (r *Record) Replace(sets ...Set) (*Record, error) {
	vals := slices.Clone(r.vals)
	if err := applySets(r.typ, vals, sets); err != nil {
		return nil, err
	}
	return &Record{typ: r.typ, vals: vals}, nil
}

func applySets(rt *RecordType, vals []Value, sets []Set) error {
	for _, s := range sets {
		i := rt.Index(s.Name)
		if i < 0 {
			return NewUnknownFieldError(rt.Name, s.Name)
		}
		if !Conforms(rt.Fields[i].Type, s.Value) {
			return Errorf(ErrCodeTypeMismatch, rt.Name, s.Name, "value %s does not conform to %s", Describe(s.Value), rt.Fields[i].Type)
		}
		vals[i] = s.Value
	}
	return nil
}

// Type returns the record's declared type.
func (r *Record) Type() *RecordType { return r.typ }

// Get returns the named field's value.
func (r *Record) Get(name string) (Value, error) {
	i := r.typ.Index(name)
	if i < 0 {
		return nil, NewUnknownFieldError(r.typ.Name, name)
	}
	return r.vals[i], nil
}

// MustGet is like Get but panics on an unknown field.
func (r *Record) MustGet(name string) Value {
	v, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// At returns the value of the i-th declared field.
func (r *Record) At(i int) Value { return r.vals[i] }

// Values returns the field values in declared order.
func (r *Record) Values() []Value { return slices.Clone(r.vals) }

// Equal reports structural equality: same record type name and equal fields.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.typ.Name != o.typ.Name || len(r.vals) != len(o.vals) {
		return false
	}
	for i := range r.vals {
		if !Equal(r.vals[i], o.vals[i]) {
			return false
		}
	}
	return true
}

// String renders the record for diagnostics.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.typ.Name)
	b.WriteByte('{')
	for i, f := range r.typ.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(Describe(r.vals[i]))
	}
	b.WriteByte('}')
	return b.String()
}
