package registry

import (
	"slices"

	"github.com/roach88/simtree/internal/ir"
)

// Metadata is the static half of a flattened record: the record type and
// its static field values in declared order. It compares and hashes as a
// unit via Key.
type Metadata struct {
	record *ir.RecordType
	values []ir.Value
	key    string
}

// Record returns the record type the metadata belongs to.
func (m Metadata) Record() *ir.RecordType { return m.record }

// Values returns the static field values in declared order.
func (m Metadata) Values() []ir.Value { return slices.Clone(m.values) }

// Key returns the hash of the canonical encoding of the metadata.
func (m Metadata) Key() string { return m.key }

// Equal reports whether two metadata tuples describe the same static state.
func (m Metadata) Equal(o Metadata) bool {
	if m.record == nil || o.record == nil {
		return m.record == o.record
	}
	if m.record.Name != o.record.Name || m.key != o.key || len(m.values) != len(o.values) {
		return false
	}
	for i := range m.values {
		if !ir.Equal(m.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

// Flatten splits rec into its dynamic field values, in declared order, and
// its static Metadata.
func (r *Registry) Flatten(rec *ir.Record) ([]ir.Value, Metadata, error) {
	c, err := r.classOf(rec.Type())
	if err != nil {
		return nil, Metadata{}, err
	}

	leaves := make([]ir.Value, len(c.dynamicIdx))
	for i, idx := range c.dynamicIdx {
		leaves[i] = rec.At(idx)
	}

	static := make([]ir.Value, len(c.staticIdx))
	for i, idx := range c.staticIdx {
		static[i] = rec.At(idx)
	}
	key, err := ir.MetadataKey(c.Type.Name, static)
	if err != nil {
		return nil, Metadata{}, unsupportedField(c, static, err)
	}

	return leaves, Metadata{record: c.Type, values: static, key: key}, nil
}

// unsupportedField pins a metadata encoding failure to the offending field.
func unsupportedField(c *Class, static []ir.Value, cause error) error {
	for i, v := range static {
		if _, err := ir.MarshalCanonical(v); err != nil {
			return ir.Errorf(ir.ErrCodeUnsupportedFieldType, c.Type.Name, c.Static[i], "static value is not hashable: %v", err)
		}
	}
	return ir.Errorf(ir.ErrCodeUnsupportedFieldType, c.Type.Name, "", "static metadata is not hashable: %v", cause)
}

// Unflatten rebuilds a record from its metadata and dynamic field values.
// unflatten(flatten(r)) is structurally equal to r.
func (r *Registry) Unflatten(meta Metadata, leaves []ir.Value) (*ir.Record, error) {
	if meta.record == nil {
		return nil, ir.Errorf(ir.ErrCodeNotRegistered, "", "", "empty metadata")
	}
	c, err := r.classOf(meta.record)
	if err != nil {
		return nil, err
	}
	if len(leaves) != len(c.dynamicIdx) {
		return nil, ir.NewLengthMismatchError(c.Type.Name, "", len(c.dynamicIdx), len(leaves))
	}
	if len(meta.values) != len(c.staticIdx) {
		return nil, ir.NewLengthMismatchError(c.Type.Name, "", len(c.staticIdx), len(meta.values))
	}

	vals := make([]ir.Value, len(c.Type.Fields))
	for i, idx := range c.dynamicIdx {
		vals[idx] = leaves[i]
	}
	for i, idx := range c.staticIdx {
		vals[idx] = meta.values[i]
	}
	return ir.FromValues(c.Type, vals)
}

// Flatten splits rec using the Default registry.
func Flatten(rec *ir.Record) ([]ir.Value, Metadata, error) { return Default.Flatten(rec) }

// Unflatten rebuilds a record using the Default registry.
func Unflatten(meta Metadata, leaves []ir.Value) (*ir.Record, error) {
	return Default.Unflatten(meta, leaves)
}
