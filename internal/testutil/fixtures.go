package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pampa-labs/inflationd/internal/series"
	"github.com/pampa-labs/inflationd/internal/source"
	"github.com/pampa-labs/inflationd/internal/store"
)

// Records builds a contiguous monthly record run from raw index values,
// with rates derived from the sequence. Panics on invalid input; tests
// only.
func Records(start series.Month, src series.Source, cpis ...float64) []series.Record {
	records := make([]series.Record, len(cpis))
	for i, cpi := range cpis {
		records[i] = series.Record{
			Month:    start.Add(i),
			CPIIndex: cpi,
			Source:   src,
		}
	}
	if err := series.Recompute(records); err != nil {
		panic(err)
	}
	return records
}

// Observations builds a contiguous monthly observation run.
func Observations(start series.Month, cpis ...float64) []source.Observation {
	obs := make([]source.Observation, len(cpis))
	for i, cpi := range cpis {
		obs[i] = source.Observation{Month: start.Add(i), CPI: cpi}
	}
	return obs
}

// OpenStore opens a throwaway store under t.TempDir, seeded with the
// given records.
func OpenStore(t *testing.T, records ...series.Record) *store.Store {
	t.Helper()

	st, err := store.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if len(records) > 0 {
		if err := st.UpsertBatch(context.Background(), records, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return st
}

// StaticFeed is a reconcile.Feed returning canned rate observations.
type StaticFeed struct {
	Rates []source.RateObservation
	Err   error
}

// FetchAnnualRates returns the canned observations at or after from.
func (f StaticFeed) FetchAnnualRates(_ context.Context, from series.Month) ([]source.RateObservation, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []source.RateObservation
	for _, r := range f.Rates {
		if !r.Month.Before(from) {
			out = append(out, r)
		}
	}
	return out, nil
}

// StaticHistory is a reconcile.History returning canned observations.
type StaticHistory struct {
	Obs []source.Observation
	Err error
}

// Load returns the canned observations.
func (h StaticHistory) Load() ([]source.Observation, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	return h.Obs, nil
}
