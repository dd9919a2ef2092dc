package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pampa-labs/inflationd/internal/reconcile"
	"github.com/pampa-labs/inflationd/internal/series"
	"github.com/pampa-labs/inflationd/internal/source"
	"github.com/pampa-labs/inflationd/internal/store"
	"github.com/pampa-labs/inflationd/internal/testutil"
)

const defaultTolerance = 1e-6

// Outcome holds the state left behind by a scenario run, for tests that
// want to assert beyond the scenario's own expect clause.
type Outcome struct {
	Store   *store.Store
	Results []reconcile.Result
}

// Run executes a scenario: it builds the canned sources and fixed clock,
// runs the configured number of refresh cycles against a throwaway
// store, and applies the scenario's expectations.
func Run(t *testing.T, sc *Scenario) *Outcome {
	t.Helper()
	ctx := context.Background()

	today, err := time.Parse("2006-01-02", sc.Today)
	require.NoError(t, err, "scenario today")
	clock := testutil.NewFixedClock(today.UTC())

	st := testutil.OpenStore(t)
	driver := buildDriver(t, sc, st, clock)

	cycles := sc.Cycles
	if cycles < 1 {
		cycles = 1
	}

	out := &Outcome{Store: st}
	var lastErr error
	for i := 0; i < cycles; i++ {
		res, err := driver.Refresh(ctx)
		out.Results = append(out.Results, res)
		lastErr = err
	}

	assertExpectations(t, ctx, sc, out, lastErr)
	return out
}

func buildDriver(t *testing.T, sc *Scenario, st *store.Store, clock reconcile.Clock) *reconcile.Driver {
	t.Helper()

	feed := testutil.StaticFeed{}
	if sc.FeedDown {
		feed.Err = series.WrapUpstreamFetch(errors.New("connection refused"), "remote feed")
	}
	for _, row := range sc.FeedRates {
		feed.Rates = append(feed.Rates, source.RateObservation{
			Month:      monthOf(t, row.Date),
			AnnualRate: row.Annual,
		})
	}

	history := testutil.StaticHistory{}
	for _, row := range sc.Historical {
		history.Obs = append(history.Obs, source.Observation{
			Month: monthOf(t, row.Date),
			CPI:   row.CPI,
		})
	}

	opts := []reconcile.Option{
		reconcile.WithHistory(history),
		reconcile.WithClock(clock),
		reconcile.WithOverrides(sc.Overrides),
	}
	if sc.StartYear != 0 {
		opts = append(opts, reconcile.WithStartYear(sc.StartYear))
	}
	if len(sc.FeedRates) > 0 {
		opts = append(opts, reconcile.WithFeedStart(monthOf(t, sc.FeedRates[0].Date)))
	}

	return reconcile.New(st, feed, opts...)
}

func assertExpectations(t *testing.T, ctx context.Context, sc *Scenario, out *Outcome, lastErr error) {
	t.Helper()
	exp := sc.Expect

	if exp.Error != "" {
		require.Error(t, lastErr, "expected cycle failure %s", exp.Error)
		var se *series.Error
		require.ErrorAs(t, lastErr, &se, "cycle error is not a taxonomy error: %v", lastErr)
		require.Equal(t, exp.Error, string(se.Code))
	} else {
		require.NoError(t, lastErr, "refresh cycle")
	}

	last := out.Results[len(out.Results)-1]
	if exp.State != "" {
		require.Equal(t, exp.State, string(last.State))
	}
	if exp.LastCycleWrites != nil {
		require.Equal(t, *exp.LastCycleWrites, last.RecordsWritten, "last cycle writes")
	}

	if exp.Records > 0 {
		count, err := out.Store.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, exp.Records, count, "record count")
	}

	for _, m := range exp.Months {
		assertMonth(t, ctx, out.Store, m)
	}
}

func assertMonth(t *testing.T, ctx context.Context, st *store.Store, exp MonthExpectation) {
	t.Helper()

	rec, found, err := st.ReadMonth(ctx, monthOf(t, exp.Date))
	require.NoError(t, err)
	require.True(t, found, "no record for %s", exp.Date)

	tol := exp.Tolerance
	if tol == 0 {
		tol = defaultTolerance
	}

	if exp.CPI != nil {
		require.InDelta(t, *exp.CPI, rec.CPIIndex, tol, "%s cpi_index", exp.Date)
	}
	if exp.Monthly != nil {
		require.InDelta(t, *exp.Monthly, rec.MonthlyRate, tol, "%s monthly_rate", exp.Date)
	}
	if exp.Annual != nil {
		require.InDelta(t, *exp.Annual, rec.AnnualRate, tol, "%s annual_rate", exp.Date)
	}
	if exp.Source != "" {
		require.Equal(t, exp.Source, string(rec.Source), "%s source", exp.Date)
	}
	if exp.Estimated != nil {
		require.Equal(t, *exp.Estimated, rec.Estimated, "%s estimated flag", exp.Date)
	}
}

func monthOf(t *testing.T, date string) series.Month {
	t.Helper()
	day, err := time.Parse("2006-01-02", date)
	require.NoError(t, err, "date %q", date)
	return series.MonthOf(day)
}
