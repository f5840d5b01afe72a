// Package registry classifies record types and provides their flatten /
// unflatten pair.
//
// Registration inspects each declared field type once: a field whose type is,
// or transitively contains, a numeric array is dynamic; every other field is
// static. The partition depends only on the declaration, never on instance
// contents, so a record type always flattens to the same tree structure.
//
// Dynamic fields become the children handed to the tree runtime, in declared
// order. Static fields travel as a Metadata tuple which must be hashable: host
// arrays are carried by raw bytes, dtype and shape, and the tuple's key is a
// domain-separated hash of its canonical encoding.
//
// Thread-safety: a Registry is safe for concurrent use. Registration of a
// given record name runs at most once; later registrations of the same name
// are idempotent when compatible and rejected otherwise.
package registry
