package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pampa-labs/inflationd/internal/series"
)

// LoadHistoricalCSV reads the static historical source file.
//
// The file must have a header row with a "date" column and either a "cpi"
// or "cpi_index" column; extra columns are ignored. Rows are returned
// sorted in file order (the file is expected to be chronological, the
// merger sorts regardless).
//
// A missing or malformed file is an UPSTREAM_FETCH error: the caller
// degrades to the remaining sources rather than aborting.
func LoadHistoricalCSV(path string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, series.WrapUpstreamFetch(err, "historical CSV unavailable at %s", path)
	}
	defer f.Close()

	obs, err := parseHistoricalCSV(f)
	if err != nil {
		return nil, series.WrapUpstreamFetch(err, "historical CSV malformed at %s", path)
	}
	return obs, nil
}

func parseHistoricalCSV(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateCol, cpiCol := -1, -1
	for i, name := range header {
		switch name {
		case "date":
			dateCol = i
		case "cpi", "cpi_index":
			if cpiCol == -1 {
				cpiCol = i
			}
		}
	}
	if dateCol == -1 || cpiCol == -1 {
		return nil, fmt.Errorf("header must contain date and cpi or cpi_index columns, got %v", header)
	}

	var obs []Observation
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dateCol >= len(row) || cpiCol >= len(row) {
			return nil, fmt.Errorf("line %d: too few columns", line)
		}

		t, err := time.Parse("2006-01-02", row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q: %w", line, row[dateCol], err)
		}
		cpi, err := strconv.ParseFloat(row[cpiCol], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad cpi %q: %w", line, row[cpiCol], err)
		}

		obs = append(obs, Observation{Month: series.MonthOf(t), CPI: cpi})
	}

	return obs, nil
}
