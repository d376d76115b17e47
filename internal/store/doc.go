// Package store provides SQLite-backed run history for marble scenarios.
//
// Every executed scenario is recorded as a run with its per-tick outcomes:
//   - Runs: scenario name, verdict, failure kind, failing tick and message
//   - Ticks: one row per tick that ran, cascading with its run
//
// # Ordering
//
// Runs are stamped with seq from a logical Clock that resumes after the
// highest stored value on Open. Queries order by seq DESC, id COLLATE BINARY
// so listings are identical however wall clocks drift.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
