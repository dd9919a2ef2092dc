package reconcile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pampa-labs/inflationd/internal/series"
)

// Override is one manually curated month of inflation data, used when the
// remote feed lags reality. Monthly rate is mandatory; annual rate and
// index are resolved from the store when absent.
type Override struct {
	Year        int      `yaml:"year"`
	Month       int      `yaml:"month"`
	MonthlyRate float64  `yaml:"monthly_rate"`
	AnnualRate  *float64 `yaml:"annual_rate,omitempty"`
	CPIIndex    *float64 `yaml:"cpi_index,omitempty"`
}

// Key returns the calendar month the override covers.
func (o Override) Key() series.Month {
	return series.Month{Year: o.Year, Month: time.Month(o.Month)}
}

// OverrideSet is a versioned dataset of curated months. It is injected
// into the driver rather than baked into code so known-good manual data
// can be replaced without redeploying the engine.
type OverrideSet struct {
	Version string     `yaml:"version"`
	Entries []Override `yaml:"entries"`
}

// Lookup returns the override covering a month, if any.
func (s OverrideSet) Lookup(m series.Month) (Override, bool) {
	for _, e := range s.Entries {
		if e.Key() == m {
			return e, true
		}
	}
	return Override{}, false
}

// LoadOverrides reads an override dataset from a YAML file.
func LoadOverrides(path string) (OverrideSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OverrideSet{}, fmt.Errorf("read overrides: %w", err)
	}

	var set OverrideSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return OverrideSet{}, fmt.Errorf("parse overrides %s: %w", path, err)
	}

	for i, e := range set.Entries {
		if e.Month < 1 || e.Month > 12 {
			return OverrideSet{}, fmt.Errorf("overrides %s: entry %d has month %d outside 1..12", path, i, e.Month)
		}
	}

	return set, nil
}
