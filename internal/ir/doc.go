// Package ir provides the declared-type and value representation for simtree
// records.
//
// This package contains the foundational types only. All other internal
// packages except array import ir; ir imports nothing internal besides array.
//
// Key design constraints:
//   - Types form a closed set of kinds (array, host array, scalar, enum, null,
//     opaque, record, seq, map, union); classification is a function of the
//     declared type alone
//   - Values are immutable; Record mutation happens through Replace, which
//     returns a new record
//   - Static metadata must have a canonical encoding so it can be hashed and
//     compared as a unit (see MarshalCanonical and MetadataKey)
package ir
