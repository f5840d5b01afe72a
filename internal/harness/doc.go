// Package harness runs conformance scenarios against the record runtime.
//
// A scenario compiles a CUE schema, builds one record instance from YAML,
// applies replace, filter_k and fill steps to it and checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: contacts_filter
//	description: "What this scenario validates"
//	schema: contacts.cue
//	record: Contacts
//	instance:
//	  dist: [0.5, -1.0, 2.0]
//	  condim: 3
//	steps:
//	  - replace: { path: condim, value: 4 }
//	  - filter_k: { mask: [true, false, true], k: 4 }
//	  - fill: { default: { dist: [9, 9, 9, 9], condim: 4 } }
//	expect:
//	  selected: 2
//	  dropped: 0
//	  fill_mask: [false, false, true, true]
//	  fields:
//	    dist: [0.5, 2.0, 9, 9]
//
// Values are converted using the declared type of the field they land in.
// Arrays are nested lists; a mapping {dtype: i32, data: [...]} picks the
// dtype of an open array field. Union-typed fields take the first variant
// that accepts the value, or the record named by a "$record" key.
//
// expect.error names an ir error code that some step must fail with.
//
// # Deterministic Testing
//
// Each scenario runs with its own registry and an in-memory SQLite store
// using testutil.DeterministicClock and testutil.SequentialIDs. The final
// record is saved and reloaded, and the reloaded leaves form the golden
// snapshot compared by RunWithGolden.
package harness
