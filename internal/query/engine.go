package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pampa-labs/inflationd/internal/series"
	"github.com/pampa-labs/inflationd/internal/store"
)

// Engine answers read queries against the series store.
type Engine struct {
	store *store.Store
	log   *slog.Logger
}

// New creates a query engine over the given store.
func New(st *store.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: st, log: log}
}

// Resolution describes how a CPIAt lookup was satisfied.
type Resolution string

const (
	// ResolutionExact means a record existed for the requested month.
	ResolutionExact Resolution = "exact"

	// ResolutionLatest means the date was after the newest stored month
	// and the newest index was used as an approximation.
	ResolutionLatest Resolution = "latest"

	// ResolutionEarliest means the date was before the oldest stored month
	// and the oldest index was used as an approximation.
	ResolutionEarliest Resolution = "earliest"
)

// CPIAt resolves the CPI index for a date.
//
// Resolution order: the record for the date's calendar month; failing
// that, the latest stored index when the date is after the newest stored
// month, or the earliest stored index when it is before the oldest. A
// date inside an interior gap is unresolvable and fails with
// MISSING_CPI_DATA. Boundary fallbacks are logged as approximations.
func (e *Engine) CPIAt(ctx context.Context, date time.Time) (float64, Resolution, error) {
	m := series.MonthOf(date)

	rec, ok, err := e.store.ReadMonth(ctx, m)
	if err != nil {
		return 0, "", err
	}
	if ok {
		return rec.CPIIndex, ResolutionExact, nil
	}

	latest, ok, err := e.store.Latest(ctx)
	if err != nil {
		return 0, "", err
	}
	if !ok {
		return 0, "", series.NewNoData("no CPI data in store")
	}
	if latest.Month.Before(m) {
		e.log.Warn("date after latest stored month, using latest CPI",
			"date", date.Format("2006-01-02"), "latest", latest.Month.String())
		return latest.CPIIndex, ResolutionLatest, nil
	}

	earliest, ok, err := e.store.Earliest(ctx)
	if err != nil {
		return 0, "", err
	}
	if ok && m.Before(earliest.Month) {
		e.log.Warn("date before earliest stored month, using earliest CPI",
			"date", date.Format("2006-01-02"), "earliest", earliest.Month.String())
		return earliest.CPIIndex, ResolutionEarliest, nil
	}

	return 0, "", series.NewMissingCPI(date, "no CPI record for month %s", m)
}

// Conversion is the result of a price conversion between two dates.
// Amounts and percentage are rounded to two decimals, the multiplier to
// four.
type Conversion struct {
	OriginalAmount   float64
	FromDate         time.Time
	ToDate           time.Time
	FromCPI          float64
	ToCPI            float64
	Multiplier       float64
	ConvertedAmount  float64
	PercentageChange float64
}

// Convert reprices an amount from one date to another using the CPI
// ratio between them. Both dates must resolve via CPIAt; otherwise the
// failure names the offending date.
func (e *Engine) Convert(ctx context.Context, amount float64, from, to time.Time) (Conversion, error) {
	fromCPI, _, err := e.CPIAt(ctx, from)
	if err != nil {
		return Conversion{}, err
	}
	toCPI, _, err := e.CPIAt(ctx, to)
	if err != nil {
		return Conversion{}, err
	}
	if fromCPI <= 0 {
		return Conversion{}, series.NewDataIntegrity("non-positive CPI %v at %s", fromCPI, from.Format("2006-01-02"))
	}

	multiplier := toCPI / fromCPI
	return Conversion{
		OriginalAmount:   amount,
		FromDate:         from,
		ToDate:           to,
		FromCPI:          fromCPI,
		ToCPI:            toCPI,
		Multiplier:       round(multiplier, 4),
		ConvertedAmount:  round(amount*multiplier, 2),
		PercentageChange: round((multiplier-1)*100, 2),
	}, nil
}

// RangeInflation is the aggregate inflation between two dates.
type RangeInflation struct {
	StartDate      time.Time
	EndDate        time.Time
	TotalInflation float64
	Multiplier     float64
	Years          float64
}

// Range returns the total inflation over [start, end] via the same CPI
// ratio arithmetic as Convert.
func (e *Engine) Range(ctx context.Context, start, end time.Time) (RangeInflation, error) {
	conv, err := e.Convert(ctx, 1, start, end)
	if err != nil {
		return RangeInflation{}, err
	}
	return RangeInflation{
		StartDate:      start,
		EndDate:        end,
		TotalInflation: conv.PercentageChange,
		Multiplier:     conv.Multiplier,
		Years:          round(end.Sub(start).Hours()/24/365.25, 2),
	}, nil
}

// Summary is the current-inflation overview.
type Summary struct {
	CurrentMonthly   float64
	CurrentAnnual    float64
	AnnualIsEstimate bool
	AvgLast12Months  float64
	TotalSinceStart  float64
	LastUpdated      series.Month
}

// Summarize reports the latest monthly and annual rates, the mean monthly
// rate over the trailing 365 days, and cumulative inflation since the
// first stored record. Fails with NO_DATA on an empty store.
func (e *Engine) Summarize(ctx context.Context) (Summary, error) {
	latest, ok, err := e.store.Latest(ctx)
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		return Summary{}, series.NewNoData("no CPI data in store")
	}

	yearAgo := latest.Month.Date().AddDate(0, 0, -365)
	window, err := e.store.ReadSince(ctx, yearAgo)
	if err != nil {
		return Summary{}, err
	}

	var avgMonthly float64
	if len(window) > 0 {
		var sum float64
		for _, r := range window {
			sum += r.MonthlyRate
		}
		avgMonthly = sum / float64(len(window))
	}

	earliest, ok, err := e.store.Earliest(ctx)
	if err != nil {
		return Summary{}, err
	}
	var total float64
	if ok && earliest.CPIIndex > 0 {
		total = (latest.CPIIndex/earliest.CPIIndex - 1) * 100
	}

	return Summary{
		CurrentMonthly:   latest.MonthlyRate,
		CurrentAnnual:    latest.AnnualRate,
		AnnualIsEstimate: latest.Estimated,
		AvgLast12Months:  round(avgMonthly, 2),
		TotalSinceStart:  round(total, 2),
		LastUpdated:      latest.Month,
	}, nil
}

// AnnualRate is the year-over-year rate reported for one calendar year,
// as of that year's latest stored month.
type AnnualRate struct {
	Year      int
	Rate      float64
	AsOfMonth series.Month
	Estimated bool
}

// AnnualByYear returns one year-over-year rate per calendar year in
// [startYear, endYear], taken from the latest stored month of each year.
// Years with no records are omitted. endYear <= 0 means no upper bound.
func (e *Engine) AnnualByYear(ctx context.Context, startYear, endYear int) ([]AnnualRate, error) {
	records, err := e.store.ReadRange(ctx, startYear, endYear, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, series.NewNoData("no CPI data between %d and %d", startYear, endYear)
	}

	var out []AnnualRate
	for _, r := range records {
		if len(out) > 0 && out[len(out)-1].Year == r.Month.Year {
			out[len(out)-1] = AnnualRate{Year: r.Month.Year, Rate: r.AnnualRate, AsOfMonth: r.Month, Estimated: r.Estimated}
			continue
		}
		out = append(out, AnnualRate{Year: r.Month.Year, Rate: r.AnnualRate, AsOfMonth: r.Month, Estimated: r.Estimated})
	}
	return out, nil
}

// round applies half-up decimal rounding to the given number of places.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
