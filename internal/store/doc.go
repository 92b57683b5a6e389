// Package store is the storage boundary livesync builds on: live queries
// (Watch) plus single-shot writes (Upsert, Delete).
//
// # Watch Contract
//
// Watch invokes its callback once, synchronously, with the current result
// of the query and an empty diff list, and again after every write that
// changes that result. Each later callback carries the full new result set
// and the diffs from the previous one. A callback carrying an error is the
// last one that watch will ever deliver.
//
// # Diff Semantics
//
//   - Delete carries the record's position in the previous result
//   - Insert carries the record's position in the new result
//   - Move carries (previous, new) for records whose relative order changed
//   - Update carries the previous position of a record whose content
//     changed without moving
//
// # Engines
//
//   - Memory: map-backed, used by tests and the default CLI
//   - SQLite: documents in a single records table, queries compiled by
//     internal/querysql; WAL mode, 5-second busy timeout
//
// Every record is an ir.Object with an integer "id" field, unique per entity.
package store
