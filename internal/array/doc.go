// Package array provides the host numeric-array runtime used by simtree.
//
// Arrays are immutable, dtyped, row-major buffers with an arbitrary shape.
// The leading axis of an array is the entity axis: compaction and fill
// operate on whole rows along it.
//
// The runtime exposes exactly three families of primitives to the rest of
// the module:
//
//   - Elementwise kernels dispatched through the Catalog (add, sub, mul, max, min)
//   - Prefix sums built on a work-efficient associative scan
//   - Segment-sum scatter along the leading axis, accumulating through the
//     add kernel
//
// plus a leading-axis select (Where) used by fill. Callers depend on the
// Runtime interface so compaction stays portable across runtimes with
// different native scan support.
package array
