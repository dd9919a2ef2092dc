package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pampa-labs/inflationd/internal/series"
	"github.com/pampa-labs/inflationd/internal/source"
	"github.com/pampa-labs/inflationd/internal/store"
)

// State is the freshness outcome of a refresh cycle.
type State string

const (
	// StateUpToDate means the stored series reaches the current month.
	StateUpToDate State = "UP_TO_DATE"

	// StateBehind means months remain uncovered after the feed and the
	// override dataset were both exhausted.
	StateBehind State = "BEHIND"
)

// Refresh log outcomes beyond the terminal states.
const outcomeFailed = "FAILED"

// ErrRefreshInProgress is returned by TryRefresh when another refresh
// cycle holds the lock.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// DefaultStartYear bounds the managed span on initial load.
const DefaultStartYear = 1995

// defaultFeedStart is the first month the remote feed carries data for.
var defaultFeedStart = series.Month{Year: 2017, Month: time.January}

// Feed fetches year-over-year growth observations from the remote source.
// Implemented by source.FeedClient; tests substitute fixtures.
type Feed interface {
	FetchAnnualRates(ctx context.Context, from series.Month) ([]source.RateObservation, error)
}

// History loads the static historical observations.
// Implemented by CSVHistory; tests substitute fixtures.
type History interface {
	Load() ([]source.Observation, error)
}

// CSVHistory is the production History backed by the historical CSV file.
type CSVHistory struct {
	Path string
}

// Load reads the historical CSV.
func (h CSVHistory) Load() ([]source.Observation, error) {
	return source.LoadHistoricalCSV(h.Path)
}

// Result summarizes one refresh cycle.
type Result struct {
	CycleToken     string
	State          State
	InitialLoad    bool
	RecordsWritten int
	MonthsBehind   int
}

// Driver orchestrates refresh cycles: load or extend the stored series
// from the merged sources, fall back to curated overrides for the
// reporting lag, and interpolate interior gaps whose anchors both exist.
//
// Thread-safety: cycles are serialized by an internal mutex. Refresh
// blocks until the lock is free; TryRefresh fails fast with
// ErrRefreshInProgress. Store reads may run concurrently with a cycle
// (WAL mode), and all writes within a cycle are batched transactions.
type Driver struct {
	store     *store.Store
	feed      Feed
	history   History
	overrides OverrideSet
	startYear int
	feedStart series.Month
	clock     Clock
	log       *slog.Logger

	mu sync.Mutex
}

// Option configures a Driver.
type Option func(*Driver)

// WithHistory sets the historical source.
func WithHistory(h History) Option {
	return func(d *Driver) { d.history = h }
}

// WithOverrides injects the curated override dataset.
func WithOverrides(set OverrideSet) Option {
	return func(d *Driver) { d.overrides = set }
}

// WithStartYear sets the first year the driver manages.
func WithStartYear(year int) Option {
	return func(d *Driver) { d.startYear = year }
}

// WithFeedStart sets the first month requested from the remote feed.
func WithFeedStart(m series.Month) Option {
	return func(d *Driver) { d.feedStart = m }
}

// WithClock overrides the wall clock for tests.
func WithClock(c Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// New creates a Driver over the given store and remote feed.
func New(st *store.Store, feed Feed, opts ...Option) *Driver {
	d := &Driver{
		store:     st,
		feed:      feed,
		startYear: DefaultStartYear,
		feedStart: defaultFeedStart,
		clock:     SystemClock{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Refresh runs one reconciliation cycle, waiting for any in-flight cycle
// to finish first.
func (d *Driver) Refresh(ctx context.Context) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runCycle(ctx)
}

// TryRefresh runs one reconciliation cycle, failing fast with
// ErrRefreshInProgress when another cycle is already running.
func (d *Driver) TryRefresh(ctx context.Context) (Result, error) {
	if !d.mu.TryLock() {
		return Result{}, ErrRefreshInProgress
	}
	defer d.mu.Unlock()
	return d.runCycle(ctx)
}

// runCycle stamps the cycle with a UUIDv7 token, logs it to the refresh
// log, and executes the state machine. Callers must hold d.mu.
func (d *Driver) runCycle(ctx context.Context) (Result, error) {
	token := uuid.Must(uuid.NewV7()).String()
	log := d.log.With("cycle", token)

	res := Result{CycleToken: token}
	if err := d.store.BeginRefreshCycle(ctx, token, d.clock.Now()); err != nil {
		return res, err
	}

	state, initial, written, behind, err := d.cycle(ctx, log)
	res.State, res.InitialLoad, res.RecordsWritten, res.MonthsBehind = state, initial, written, behind

	outcome := string(state)
	if err != nil {
		outcome = outcomeFailed
		log.Error("refresh cycle failed", "error", err)
	} else {
		log.Info("refresh cycle finished", "state", state, "records_written", written, "months_behind", behind)
	}

	if finErr := d.store.FinishRefreshCycle(ctx, token, outcome, written, d.clock.Now()); finErr != nil && err == nil {
		err = finErr
	}

	return res, err
}

func (d *Driver) cycle(ctx context.Context, log *slog.Logger) (state State, initial bool, written, behind int, err error) {
	count, err := d.store.Count(ctx)
	if err != nil {
		return "", false, 0, 0, err
	}

	hist, feedObs := d.loadSources(ctx, log)
	current := series.MonthOf(d.clock.Now())

	// Empty store: full merge-and-load from scratch.
	if count == 0 {
		merged, mergeErr := Merge(hist, feedObs, d.startYear)
		if mergeErr != nil {
			return "", false, 0, 0, mergeErr
		}
		if err := d.store.UpsertBatch(ctx, merged, d.clock.Now()); err != nil {
			return "", false, 0, 0, err
		}
		initial = true
		written += len(merged)
		log.Info("initial load complete", "records", len(merged))
	}

	latest, ok, err := d.store.Latest(ctx)
	if err != nil {
		return "", initial, written, 0, err
	}
	if !ok {
		return "", initial, written, 0, series.NewNoData("store empty after load")
	}
	behind = latest.Month.MonthsUntil(current)

	// Extend from the merged sources, restricted to the latest stored year.
	if behind > 0 && !initial {
		n, newLatest, extErr := d.extendFromSources(ctx, log, hist, feedObs, latest)
		if extErr != nil {
			return "", initial, written, behind, extErr
		}
		written += n
		latest = newLatest
		behind = latest.Month.MonthsUntil(current)
	}

	// Remote source lags reality: apply curated overrides, compounding the
	// index forward from the last known value.
	if behind > 0 {
		n, newLatest, ovErr := d.applyOverrides(ctx, log, latest, current)
		if ovErr != nil {
			return "", initial, written, behind, ovErr
		}
		written += n
		latest = newLatest
		behind = latest.Month.MonthsUntil(current)
	}

	// Interior gaps whose both anchors exist are interpolated.
	n, gapErr := d.fillInteriorGaps(ctx, log)
	if gapErr != nil {
		return "", initial, written, behind, gapErr
	}
	written += n

	state = StateUpToDate
	if behind > 0 {
		state = StateBehind
		log.Warn("series still behind after overrides", "months_behind", behind)
	}
	return state, initial, written, behind, nil
}

// loadSources gathers both upstreams, degrading gracefully: an
// UPSTREAM_FETCH failure on either side logs a warning and yields an
// empty slice for that source. The merger decides whether what remains
// is enough.
func (d *Driver) loadSources(ctx context.Context, log *slog.Logger) (hist, feedObs []source.Observation) {
	if d.history != nil {
		h, err := d.history.Load()
		if err != nil {
			log.Warn("historical source unavailable", "error", err)
		} else {
			hist = h
		}
	}

	if d.feed != nil {
		rates, err := d.feed.FetchAnnualRates(ctx, d.feedStart)
		if err != nil {
			log.Warn("remote feed unavailable", "error", err)
		} else {
			feedObs = source.ReconstructIndex(rates)
		}
	}

	return hist, feedObs
}

// extendFromSources re-runs the merger restricted to the latest stored
// year and upserts every record strictly after the latest stored month.
func (d *Driver) extendFromSources(ctx context.Context, log *slog.Logger, hist, feedObs []source.Observation, latest series.Record) (int, series.Record, error) {
	merged, err := Merge(hist, feedObs, latest.Month.Year)
	if series.IsNoData(err) {
		// Both sources down; overrides may still cover the lag.
		return 0, latest, nil
	}
	if err != nil {
		return 0, latest, err
	}

	var newer []series.Record
	window := map[series.Month]float64{}
	for _, r := range merged {
		window[r.Month] = r.CPIIndex
		if latest.Month.Before(r.Month) {
			newer = append(newer, r)
		}
	}
	if len(newer) == 0 {
		return 0, latest, nil
	}

	// Annual rates near the window edge have no 12-back row inside the
	// window; resolve them against the store before persisting.
	for i := range newer {
		if resolved, ok := d.resolveAnnual(ctx, newer[i].Month, newer[i].CPIIndex, window); ok {
			newer[i].AnnualRate = resolved
			newer[i].Estimated = false
		}
	}

	if err := d.store.UpsertBatch(ctx, newer, d.clock.Now()); err != nil {
		return 0, latest, err
	}
	log.Info("extended series from sources", "records", len(newer), "from", newer[0].Month.String(), "to", newer[len(newer)-1].Month.String())

	return len(newer), newer[len(newer)-1], nil
}

// resolveAnnual derives the year-over-year rate for a month from the
// record exactly 12 months earlier, looking first in the in-flight window
// and then in the store. Returns ok=false when neither holds that month;
// callers fall back to the monthly*12 estimate themselves.
func (d *Driver) resolveAnnual(ctx context.Context, m series.Month, cpi float64, window map[series.Month]float64) (rate float64, ok bool) {
	back := m.Add(-12)
	if prior, found := window[back]; found && prior > 0 {
		return (cpi/prior - 1) * 100, true
	}
	rec, found, err := d.store.ReadMonth(ctx, back)
	if err == nil && found && rec.CPIIndex > 0 {
		return (cpi/rec.CPIIndex - 1) * 100, true
	}
	return 0, false
}

// applyOverrides walks forward month by month from the latest stored
// record, compounding the index with each curated monthly rate. The walk
// stops at the first month without an override entry: beyond the curated
// data nothing is fabricated.
func (d *Driver) applyOverrides(ctx context.Context, log *slog.Logger, latest series.Record, current series.Month) (int, series.Record, error) {
	if len(d.overrides.Entries) == 0 {
		return 0, latest, nil
	}

	var batch []series.Record
	prevCPI := latest.CPIIndex

	for m := latest.Month.Add(1); !m.After(current); m = m.Add(1) {
		ov, found := d.overrides.Lookup(m)
		if !found {
			break
		}

		cpi := series.CPIFromRate(prevCPI, ov.MonthlyRate)
		if ov.CPIIndex != nil {
			cpi = *ov.CPIIndex
		}
		if cpi <= 0 {
			return 0, latest, series.NewDataIntegrity("override for %s yields non-positive CPI %v", m, cpi)
		}

		rec := series.Record{
			Month:       m,
			CPIIndex:    cpi,
			MonthlyRate: ov.MonthlyRate,
			Source:      series.SourceManualOverride,
		}

		switch {
		case ov.AnnualRate != nil:
			rec.AnnualRate = *ov.AnnualRate
		default:
			window := map[series.Month]float64{}
			for _, b := range batch {
				window[b.Month] = b.CPIIndex
			}
			if rate, ok := d.resolveAnnual(ctx, m, cpi, window); ok {
				rec.AnnualRate = rate
			} else {
				rec.AnnualRate = series.EstimateAnnualFromMonthly(ov.MonthlyRate)
				rec.Estimated = true
			}
		}

		batch = append(batch, rec)
		prevCPI = cpi
	}

	if len(batch) == 0 {
		return 0, latest, nil
	}

	if err := d.store.UpsertBatch(ctx, batch, d.clock.Now()); err != nil {
		return 0, latest, err
	}
	log.Info("applied manual overrides", "version", d.overrides.Version, "records", len(batch))

	return len(batch), batch[len(batch)-1], nil
}

// fillInteriorGaps interpolates every interior gap whose boundary anchors
// both exist. Trailing gaps (no end anchor) are never interpolated.
func (d *Driver) fillInteriorGaps(ctx context.Context, log *slog.Logger) (int, error) {
	records, err := d.store.ReadAll(ctx)
	if err != nil {
		return 0, err
	}

	known := map[series.Month]float64{}
	for _, r := range records {
		known[r.Month] = r.CPIIndex
	}
	prior := func(m series.Month) (float64, bool) {
		cpi, ok := known[m]
		return cpi, ok
	}

	filled := 0
	for i := 1; i < len(records); i++ {
		gap := records[i-1].Month.MonthsUntil(records[i].Month)
		if gap <= 1 {
			continue
		}

		synthetic, err := series.Interpolate(records[i-1], records[i], prior)
		if err != nil {
			return filled, err
		}
		for _, r := range synthetic {
			known[r.Month] = r.CPIIndex
		}

		// The end anchor's cached rates were derived across the gap.
		// Rederive them against the months that now exist.
		anchor := records[i]
		anchor.MonthlyRate = (anchor.CPIIndex/synthetic[len(synthetic)-1].CPIIndex - 1) * 100
		if yearAgo, ok := known[anchor.Month.Add(-12)]; ok && yearAgo > 0 {
			anchor.AnnualRate = (anchor.CPIIndex/yearAgo - 1) * 100
			anchor.Estimated = false
		}

		batch := append(synthetic, anchor)
		if err := d.store.UpsertBatch(ctx, batch, d.clock.Now()); err != nil {
			return filled, err
		}
		filled += len(batch)
		log.Info("interpolated interior gap", "from", records[i-1].Month.String(), "to", records[i].Month.String(), "records", len(synthetic))
	}

	return filled, nil
}
