package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pampa-labs/inflationd/internal/reconcile"
)

// Scenario defines one end-to-end reconciliation test: fixed sources,
// fixed clock, expected series.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Today is the wall-clock date (YYYY-MM-DD) the driver sees.
	Today string `yaml:"today"`

	// StartYear bounds the managed span. Zero means the driver default.
	StartYear int `yaml:"start_year,omitempty"`

	// Cycles is the number of refresh cycles to run. Zero means one.
	// Use two to validate idempotence (expect.last_cycle_writes: 0).
	Cycles int `yaml:"cycles,omitempty"`

	// Historical is the static source's observations.
	Historical []ObservationRow `yaml:"historical,omitempty"`

	// FeedRates is the remote feed's year-over-year observations.
	FeedRates []RateRow `yaml:"feed_rates,omitempty"`

	// FeedDown simulates an unreachable remote feed.
	FeedDown bool `yaml:"feed_down,omitempty"`

	// Overrides is the curated override dataset injected into the driver.
	Overrides reconcile.OverrideSet `yaml:"overrides,omitempty"`

	// Expect validates the final state.
	Expect Expectation `yaml:"expect"`
}

// ObservationRow is one (date, index) point of a source.
type ObservationRow struct {
	Date string  `yaml:"date"`
	CPI  float64 `yaml:"cpi"`
}

// RateRow is one (date, annual growth rate) point of the remote feed.
type RateRow struct {
	Date   string  `yaml:"date"`
	Annual float64 `yaml:"annual"`
}

// Expectation validates the store and cycle outcomes after the last
// refresh cycle.
type Expectation struct {
	// State is the expected final cycle state ("UP_TO_DATE", "BEHIND").
	State string `yaml:"state,omitempty"`

	// Error expects the cycle to fail with the given taxonomy code.
	Error string `yaml:"error,omitempty"`

	// Records is the expected total record count (-1 or omitted = skip).
	Records int `yaml:"records,omitempty"`

	// LastCycleWrites is the expected records_written of the final cycle.
	// Nil means skip; zero validates idempotence.
	LastCycleWrites *int `yaml:"last_cycle_writes,omitempty"`

	// Months spot-checks individual records. Subset match.
	Months []MonthExpectation `yaml:"months,omitempty"`
}

// MonthExpectation spot-checks one stored record.
type MonthExpectation struct {
	Date      string   `yaml:"date"`
	CPI       *float64 `yaml:"cpi,omitempty"`
	Monthly   *float64 `yaml:"monthly,omitempty"`
	Annual    *float64 `yaml:"annual,omitempty"`
	Source    string   `yaml:"source,omitempty"`
	Estimated *bool    `yaml:"estimated,omitempty"`

	// Tolerance for float comparisons. Zero means the default 1e-6.
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected to catch typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml scenario in a directory, sorted by
// file name.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func validateScenario(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.Today == "" {
		return fmt.Errorf("today is required")
	}
	if _, err := time.Parse("2006-01-02", sc.Today); err != nil {
		return fmt.Errorf("today must be YYYY-MM-DD: %w", err)
	}
	for _, row := range sc.Historical {
		if _, err := time.Parse("2006-01-02", row.Date); err != nil {
			return fmt.Errorf("historical date %q: %w", row.Date, err)
		}
	}
	for _, row := range sc.FeedRates {
		if _, err := time.Parse("2006-01-02", row.Date); err != nil {
			return fmt.Errorf("feed date %q: %w", row.Date, err)
		}
	}
	for _, m := range sc.Expect.Months {
		if _, err := time.Parse("2006-01-02", m.Date); err != nil {
			return fmt.Errorf("expected month date %q: %w", m.Date, err)
		}
	}
	return nil
}
