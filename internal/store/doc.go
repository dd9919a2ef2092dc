// Package store provides SQLite-backed durable storage for the monthly
// CPI series.
//
// One table holds the series: monthly_records, keyed by the first day of
// the month, with a UNIQUE(year, month) index for same-month fallback
// lookups. A second table, refresh_log, records one row per
// reconciliation cycle for observability.
//
// Write discipline:
//   - Upsert semantics: last write wins, updated_at bumped on overwrite
//   - Batches commit all-or-nothing so a crash mid-refresh never leaves
//     a record's cached rates inconsistent with its index value
//   - cpi_index > 0 is enforced both in Go (series.Validate) and by a
//     CHECK constraint
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
