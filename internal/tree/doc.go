// Package tree flattens arbitrary ir values into ordered numeric-array
// leaves plus a structure definition, and rebuilds them.
//
// Records are taken apart only through the registry's Flatten/Unflatten
// pair, so the static half of every record travels inside the Def and the
// leaves are exactly the numeric arrays reachable through dynamic fields.
// Lists flatten by index and maps by sorted key. Any other value inside a
// dynamic subtree (null, scalars, host arrays, opaque values) is an atom
// carried in the Def.
//
// Two values have the same structure when their Defs are Equal. Map2 and the
// compaction engine rely on this to pair leaves positionally.
package tree
