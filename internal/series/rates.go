package series

import "math"

// MonthlyRate returns the percent change of cpi[i] versus cpi[i-1].
// Defined only for i >= 1; earlier indexes default to 0.
func MonthlyRate(cpi []float64, i int) float64 {
	if i < 1 || i >= len(cpi) {
		return 0
	}
	return (cpi[i]/cpi[i-1] - 1) * 100
}

// AnnualRate returns the percent change of cpi[i] versus cpi[i-12].
// Defined only for i >= 12; earlier indexes default to 0.
func AnnualRate(cpi []float64, i int) float64 {
	if i < 12 || i >= len(cpi) {
		return 0
	}
	return (cpi[i]/cpi[i-12] - 1) * 100
}

// CPIFromRate applies one month of growth at ratePercent to prevCPI.
func CPIFromRate(prevCPI, ratePercent float64) float64 {
	return prevCPI * (1 + ratePercent/100)
}

// CPIFromRateSteps compounds ratePercent over the given number of months.
// Used when the immediately preceding month is missing and only a more
// distant anchor is available.
func CPIFromRateSteps(prevCPI, ratePercent float64, steps int) float64 {
	return prevCPI * math.Pow(1+ratePercent/100, float64(steps))
}

// EstimateAnnualFromMonthly is the documented rough approximation used when
// no record 12 months prior exists: monthly rate times 12. Records carrying
// it must be flagged Estimated.
func EstimateAnnualFromMonthly(monthlyRate float64) float64 {
	return monthlyRate * 12
}

// Recompute rederives MonthlyRate and AnnualRate for every record from the
// CPIIndex sequence alone. Records must already be sorted chronologically.
// Rates are positional over the sorted sequence: one row back for the
// monthly rate, twelve rows back for the annual rate.
//
// Estimated is cleared on every record: recomputed rates are exact
// positional derivations, never the monthly*12 estimate.
//
// Returns DATA_INTEGRITY if any index is non-positive.
func Recompute(records []Record) error {
	if err := Validate(records); err != nil {
		return err
	}

	cpi := make([]float64, len(records))
	for i, r := range records {
		cpi[i] = r.CPIIndex
	}

	for i := range records {
		records[i].MonthlyRate = MonthlyRate(cpi, i)
		records[i].AnnualRate = AnnualRate(cpi, i)
		records[i].Estimated = false
	}

	return nil
}
