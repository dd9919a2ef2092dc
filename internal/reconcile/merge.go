package reconcile

import (
	"sort"

	"github.com/pampa-labs/inflationd/internal/series"
	"github.com/pampa-labs/inflationd/internal/source"
)

// Merge combines the historical and feed observations into one normalized
// record sequence starting at startYear.
//
// When both sources are present the feed is rescaled so the join point is
// continuous in level: every feed value is multiplied by
// lastHistorical/firstFeed. Ratios inside each source are preserved.
// Duplicate months keep the feed's value. When only one source is present
// it is used as-is.
//
// Monthly and annual rates are always recomputed from the merged index
// sequence, never copied from a source's own rate fields, so the result
// is internally consistent regardless of how the sources disagreed.
//
// Fails with NO_DATA when both sources are empty and DATA_INTEGRITY when
// a join anchor has a non-positive index.
func Merge(historical, feed []source.Observation, startYear int) ([]series.Record, error) {
	if len(historical) == 0 && len(feed) == 0 {
		return nil, series.NewNoData("no CPI data available from any source")
	}

	historical = sortedObservations(historical)
	feed = sortedObservations(feed)

	if len(historical) > 0 && len(feed) > 0 {
		last := historical[len(historical)-1]
		first := feed[0]
		if last.CPI <= 0 {
			return nil, series.NewDataIntegrity("historical join anchor %s has non-positive CPI %v", last.Month, last.CPI)
		}
		if first.CPI <= 0 {
			return nil, series.NewDataIntegrity("feed join anchor %s has non-positive CPI %v", first.Month, first.CPI)
		}

		adjustment := last.CPI / first.CPI
		scaled := make([]source.Observation, len(feed))
		for i, o := range feed {
			scaled[i] = source.Observation{Month: o.Month, CPI: o.CPI * adjustment}
		}
		feed = scaled
	}

	// Later source wins on duplicate months: feed entries overwrite
	// historical entries for the same month.
	byMonth := map[series.Month]series.Record{}
	for _, o := range historical {
		byMonth[o.Month] = series.Record{Month: o.Month, CPIIndex: o.CPI, Source: series.SourceHistoricalCSV}
	}
	for _, o := range feed {
		byMonth[o.Month] = series.Record{Month: o.Month, CPIIndex: o.CPI, Source: series.SourceLiveFeed}
	}

	merged := make([]series.Record, 0, len(byMonth))
	for m, rec := range byMonth {
		if m.Year < startYear {
			continue
		}
		merged = append(merged, rec)
	}
	series.SortByMonth(merged)

	if len(merged) == 0 {
		return nil, series.NewNoData("no CPI data on or after year %d", startYear)
	}

	if err := series.Recompute(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

func sortedObservations(obs []source.Observation) []source.Observation {
	out := make([]source.Observation, len(obs))
	copy(out, obs)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.Before(out[j].Month)
	})
	return out
}
