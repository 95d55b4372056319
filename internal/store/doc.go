// Package store provides the SQLite-backed knowledge base the runtime
// writes guard effects to.
//
// Two tables:
//   - facts: the current world state, one row per (predicate, args)
//   - effects: an append-only log of every write, keyed by (run_id, seq)
//
// Fact writes are idempotent: adding a present fact or removing an absent
// one succeeds without change. Arguments are stored as a canonical JSON
// array so ordering by (predicate, args) is byte-stable.
//
// All ordering uses the logical seq from the engine clock, never wall time.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - single open connection, so ":memory:" databases persist for the
//     lifetime of the Store
package store
