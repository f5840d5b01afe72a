// Package treepath replaces fields deep inside immutable records by dotted
// path.
//
// A path such as "bodies.geoms.friction" is validated against the declared
// record types before any value is touched. When a path segment crosses a
// list of records the rest of the path is applied to every element of that
// list. Replace broadcasts a single value to every element reached. A list
// value for a field that is not itself list-typed is instead spread over the
// first list crossed, one entry per element, and must match its length.
// ReplaceEach always spreads, whatever the field type.
//
// Lists whose element type is a union of records may hold elements that do
// not declare the next segment. Such elements are left unchanged, but at
// least one variant must declare it.
package treepath
