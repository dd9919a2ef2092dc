package series

import (
	"fmt"
	"sort"
	"time"
)

// Source identifies where a record's CPI value came from.
// Provenance is informational only - it never affects query semantics.
type Source string

const (
	// SourceHistoricalCSV marks records loaded from the static historical file.
	SourceHistoricalCSV Source = "historical-csv"

	// SourceLiveFeed marks records reconstructed from the remote feed.
	SourceLiveFeed Source = "live-feed"

	// SourceManualOverride marks records produced from the curated override dataset.
	SourceManualOverride Source = "manual-override"

	// SourceInterpolated marks synthetic records produced by gap interpolation.
	SourceInterpolated Source = "interpolated"
)

// Month identifies a calendar month. It is the unique key of a Record:
// all dates are truncated to the first day of their month.
//
// Month is comparable and safe to use as a map key.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf truncates a time to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Date returns the first day of the month at midnight UTC.
func (m Month) Date() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Add returns the month n calendar months after m (n may be negative).
func (m Month) Add(n int) Month {
	return MonthOf(m.Date().AddDate(0, n, 0))
}

// MonthsUntil returns the number of calendar months from m to other.
// Positive when other is later than m.
func (m Month) MonthsUntil(other Month) int {
	return (other.Year-m.Year)*12 + int(other.Month) - int(m.Month)
}

// Before reports whether m is strictly earlier than other.
func (m Month) Before(other Month) bool {
	return m.MonthsUntil(other) > 0
}

// After reports whether m is strictly later than other.
func (m Month) After(other Month) bool {
	return m.MonthsUntil(other) < 0
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Record is one month of CPI data.
//
// MonthlyRate and AnnualRate are derived from the CPIIndex sequence and
// stored as a cache; Recompute regenerates them.
type Record struct {
	Month       Month
	CPIIndex    float64
	MonthlyRate float64
	AnnualRate  float64
	Source      Source

	// Estimated is set when AnnualRate is the documented monthly*12
	// approximation rather than a true year-over-year comparison.
	Estimated bool

	UpdatedAt time.Time
}

// SortByMonth sorts records chronologically in place.
func SortByMonth(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Month.Before(records[j].Month)
	})
}

// Validate checks the positivity invariant over a record slice.
// Returns a DATA_INTEGRITY error naming the first offending month.
func Validate(records []Record) error {
	for _, r := range records {
		if r.CPIIndex <= 0 {
			return NewDataIntegrity("non-positive CPI index %v for %s", r.CPIIndex, r.Month)
		}
	}
	return nil
}
