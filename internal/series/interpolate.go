package series

import "math"

// PriorCPI looks up the CPI index for a month, typically against the store.
// Returns false when no record exists for that month.
type PriorCPI func(m Month) (float64, bool)

// Interpolate produces the synthetic monthly records strictly between two
// anchors using compound-growth interpolation: the implied monthly growth
// rate is constant across the span and compounding it from the start anchor
// reaches the end anchor exactly (up to floating-point rounding).
//
// Geometric rather than linear interpolation because CPI evolves
// multiplicatively: inflation compounds.
//
// The anchors must be at least one month apart. For a one-month span the
// result is empty. Each filled record's annual rate is computed against the
// record twelve months prior when prior resolves it; otherwise it carries
// the monthly*12 estimate and is flagged Estimated. prior may be nil.
//
// Returns DATA_INTEGRITY if either anchor has a non-positive index.
func Interpolate(start, end Record, prior PriorCPI) ([]Record, error) {
	if start.CPIIndex <= 0 {
		return nil, NewDataIntegrity("interpolation start anchor %s has non-positive CPI %v", start.Month, start.CPIIndex)
	}
	if end.CPIIndex <= 0 {
		return nil, NewDataIntegrity("interpolation end anchor %s has non-positive CPI %v", end.Month, end.CPIIndex)
	}

	n := start.Month.MonthsUntil(end.Month)
	if n < 1 {
		return nil, NewDataIntegrity("interpolation anchors out of order: %s to %s", start.Month, end.Month)
	}

	totalGrowth := end.CPIIndex / start.CPIIndex
	monthlyGrowth := math.Pow(totalGrowth, 1/float64(n))
	monthlyRate := (monthlyGrowth - 1) * 100

	filled := make([]Record, 0, n-1)
	for k := 1; k < n; k++ {
		m := start.Month.Add(k)
		rec := Record{
			Month:       m,
			CPIIndex:    start.CPIIndex * math.Pow(monthlyGrowth, float64(k)),
			MonthlyRate: monthlyRate,
			Source:      SourceInterpolated,
		}

		if yearAgo, ok := lookupPrior(prior, m.Add(-12)); ok && yearAgo > 0 {
			rec.AnnualRate = (rec.CPIIndex/yearAgo - 1) * 100
		} else {
			rec.AnnualRate = EstimateAnnualFromMonthly(monthlyRate)
			rec.Estimated = true
		}

		filled = append(filled, rec)
	}

	return filled, nil
}

func lookupPrior(prior PriorCPI, m Month) (float64, bool) {
	if prior == nil {
		return 0, false
	}
	return prior(m)
}
