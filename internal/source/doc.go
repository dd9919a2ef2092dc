// Package source loads raw CPI observations from the two upstream data
// sources: a static historical CSV file and a remote feed that publishes
// year-over-year growth rates.
//
// The feed's growth rates are reconstructed into an index by seeding an
// arbitrary base of 100 at the first observation and compounding each
// annual rate as (1+rate/100)^(1/12) per month. That treats the reported
// year-over-year rate as if it applied uniformly within the month - a
// known approximation inherited from the upstream design, kept as-is
// because "fixing" it would silently change historical values.
package source
