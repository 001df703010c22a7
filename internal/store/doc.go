// Package store provides a SQLite-backed cache of synthesis runs.
//
// A run records one join configuration, the transition table synthesized
// from it and the content hashes of both. Runs are keyed by the spec hash,
// so synthesizing an unchanged configuration again is a cache hit.
//
// # Conventions
//
// Logical identity and time:
//   - Runs are ordered by seq INTEGER (logical clock), NEVER timestamps
//   - All list queries use ORDER BY seq ASC, id ASC COLLATE BINARY
//
// Content addressing:
//   - spec_hash is UNIQUE; saving the same configuration twice keeps the
//     first run
//   - spec and table are stored as canonical JSON, hashes are computed by
//     functions in internal/ir/hash.go
//
// # Schema
//
// Open applies the connection pragmas (WAL, synchronous NORMAL, a 5s busy
// timeout, foreign keys) and the embedded schema, then runs every entry of
// the migration list newer than PRAGMA user_version.
package store
