// Package store provides the SQLite audit log of solve runs.
//
// The log is append-only:
//   - runs: one row per solve (source, model fingerprint, status, objective)
//   - run_values: the solved value of every variable instance of a run
//
// # Ordering
//
// Runs carry a logical seq assigned at write time. Listings order by
// seq, never by wall-clock time; run ids are UUIDv7 and sort the same
// way when generated on one machine.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Index tuples are stored as canonical JSON (ir.MarshalCanonical) so that
// equal tuples always produce byte-identical rows.
package store
