// Package query answers read-side questions against the stored CPI
// series: point-in-time index lookups with documented fallbacks, price
// conversion between two dates, range inflation, per-year annual rates,
// and the current-inflation summary.
//
// Display rounding (two decimals for amounts and percentages, four for
// the multiplier) is applied here with decimal arithmetic; it is a
// presentation contract, the store keeps full precision.
package query
