// Package series defines the monthly CPI record model and the pure
// arithmetic that everything else is built on: month keys, monthly and
// annual rate derivation, compound-growth interpolation between anchors,
// and the error taxonomy shared across the reconciliation and query
// layers.
//
// Rates are always derived from the CPI index sequence. Stored rate
// columns are a cache: Recompute must be able to regenerate them from
// the index values alone.
package series
