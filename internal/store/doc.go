// Package store provides SQLite-backed snapshots of record instances.
//
// A snapshot captures one record (dynamic arrays included) in a
// self-describing JSON body together with:
//   - id: a UUIDv7, time-sortable
//   - seq: a logical clock value; all listing orders by seq, never by time
//   - record_type: the record's type name, used to resolve the type on load
//   - metadata_key: the hash of the record's static metadata, so snapshots
//     sharing configuration can be found without decoding bodies
//   - content_hash: a domain-separated hash of the body
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Headers are filtered with Search, whose predicates (Equals, AtLeast, And)
// compile to parameterized SQL over a fixed set of columns.
//
// Record types are resolved through a registry on load, so every record type
// stored must be registered before its snapshots are read back.
package store
