package source

import (
	"math"

	"github.com/pampa-labs/inflationd/internal/series"
)

// Observation is one raw (month, index) point from a source, before
// merging and rate derivation.
type Observation struct {
	Month series.Month
	CPI   float64
}

// RateObservation is one raw (month, year-over-year growth rate) point
// from the remote feed.
type RateObservation struct {
	Month      series.Month
	AnnualRate float64
}

// reconstructBase is the arbitrary index value seeded at the first feed
// observation. The merger rescales the whole feed at the join point, so
// only ratios within the feed matter.
const reconstructBase = 100.0

// ReconstructIndex converts a chronologically sorted run of year-over-year
// growth rates into an index sequence: the first observation is seeded at
// reconstructBase and each subsequent month compounds its annual rate as
// one twelfth of a year of growth.
func ReconstructIndex(rates []RateObservation) []Observation {
	if len(rates) == 0 {
		return nil
	}

	obs := make([]Observation, len(rates))
	obs[0] = Observation{Month: rates[0].Month, CPI: reconstructBase}
	for i := 1; i < len(rates); i++ {
		monthly := math.Pow(1+rates[i].AnnualRate/100, 1.0/12)
		obs[i] = Observation{
			Month: rates[i].Month,
			CPI:   obs[i-1].CPI * monthly,
		}
	}
	return obs
}
