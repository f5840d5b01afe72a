package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/roach88/simtree/internal/ir"
)

// Class is the immutable classification of a registered record type.
type Class struct {
	// Type is the record type as first registered.
	Type *ir.RecordType

	// Dynamic lists dynamic field names in declared order.
	Dynamic []string

	// Static lists static field names in declared order.
	Static []string

	dynamicIdx []int
	staticIdx  []int
}

// IsDynamic reports whether the named field is a dynamic field.
func (c *Class) IsDynamic(name string) bool {
	return slices.Contains(c.Dynamic, name)
}

// Registry holds the classification of every registered record type.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// Default is the process-wide registry used by the package-level functions.
var Default = New()

// Register classifies rt and every record type reachable from its fields.
//
// Registering a name that is already present returns the existing Class when
// the field list and declared types match, and a REGISTRATION_CONFLICT error
// otherwise. A static field whose type has no hashable representation fails
// with UNSUPPORTED_FIELD_TYPE.
func (r *Registry) Register(rt *ir.RecordType) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[string]*Class)
	class, err := r.registerLocked(rt, staged)
	if err != nil {
		return nil, err
	}
	for name, c := range staged {
		r.classes[name] = c
		slog.Debug("record registered",
			"record", name,
			"dynamic", len(c.Dynamic),
			"static", len(c.Static),
		)
	}
	return class, nil
}

// registerLocked classifies rt and every record type it reaches into staged.
// Nothing reaches r.classes unless the whole graph registers. A nil entry in
// staged marks a type whose registration is in progress.
func (r *Registry) registerLocked(rt *ir.RecordType, staged map[string]*Class) (*Class, error) {
	if rt == nil {
		return nil, ir.Errorf(ir.ErrCodeNotRegistered, "", "", "nil record type")
	}
	if err := rt.Validate(); err != nil {
		return nil, fmt.Errorf("register %s: %w", rt.Name, err)
	}

	existing, ok := r.classes[rt.Name]
	if !ok {
		existing, ok = staged[rt.Name]
	}
	if ok {
		if existing == nil {
			// Recursive reference; the outer call finishes registration.
			return nil, nil
		}
		if !compatible(existing.Type, rt) {
			slog.Warn("record registration rejected",
				"record", rt.Name,
				"reason", "incompatible re-registration",
			)
			return nil, ir.Errorf(ir.ErrCodeRegistrationConflict, rt.Name, "", "record already registered with different fields")
		}
		return existing, nil
	}
	staged[rt.Name] = nil

	class := classify(rt)
	for _, i := range class.staticIdx {
		f := rt.Fields[i]
		if !ir.Hashable(f.Type) {
			return nil, ir.Errorf(ir.ErrCodeUnsupportedFieldType, rt.Name, f.Name, "static field type %s has no hashable representation", f.Type)
		}
	}

	for _, f := range rt.Fields {
		for _, nested := range ir.RecordsIn(f.Type) {
			if _, err := r.registerLocked(nested, staged); err != nil {
				return nil, err
			}
		}
	}

	staged[rt.Name] = class
	return class, nil
}

// classify partitions fields by the is-or-contains-numeric-array predicate.
func classify(rt *ir.RecordType) *Class {
	c := &Class{Type: rt}
	for i, f := range rt.Fields {
		if ir.ContainsArray(f.Type) {
			c.Dynamic = append(c.Dynamic, f.Name)
			c.dynamicIdx = append(c.dynamicIdx, i)
		} else {
			c.Static = append(c.Static, f.Name)
			c.staticIdx = append(c.staticIdx, i)
		}
	}
	return c
}

func compatible(a, b *ir.RecordType) bool {
	if a == b {
		return true
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		fa, fb := a.Fields[i], b.Fields[i]
		if fa.Name != fb.Name || !ir.SameType(fa.Type, fb.Type) {
			return false
		}
		if ir.ContainsArray(fa.Type) != ir.ContainsArray(fb.Type) {
			return false
		}
	}
	return true
}

// Lookup returns the class registered under name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// Classes returns every registered class sorted by record name.
func (r *Registry) Classes() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type.Name < out[j].Type.Name })
	return out
}

func (r *Registry) classOf(rt *ir.RecordType) (*Class, error) {
	c, ok := r.Lookup(rt.Name)
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeNotRegistered, rt.Name, "", "record type is not registered")
	}
	return c, nil
}

// Replace returns a copy of rec with the given fields overridden.
// The record's type must be registered.
func (r *Registry) Replace(rec *ir.Record, overrides ...ir.Set) (*ir.Record, error) {
	if _, err := r.classOf(rec.Type()); err != nil {
		return nil, err
	}
	return rec.Replace(overrides...)
}

// Fields returns the ordered (name, declared type) list of rt.
func Fields(rt *ir.RecordType) []ir.Field {
	return slices.Clone(rt.Fields)
}

// Register classifies rt in the Default registry.
func Register(rt *ir.RecordType) (*Class, error) { return Default.Register(rt) }

// MustRegister is like Register but panics on error. Intended for
// package-level record declarations, where a registration error is fatal.
func MustRegister(rt *ir.RecordType) *Class {
	c, err := Default.Register(rt)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup finds a class in the Default registry.
func Lookup(name string) (*Class, bool) { return Default.Lookup(name) }

// Replace overrides fields using the Default registry.
func Replace(rec *ir.Record, overrides ...ir.Set) (*ir.Record, error) {
	return Default.Replace(rec, overrides...)
}
