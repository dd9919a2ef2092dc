package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pampa-labs/inflationd/internal/series"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "historical.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadHistoricalCSV(t *testing.T) {
	path := writeCSV(t, strings.Join([]string{
		"date,cpi",
		"1995-01-01,100.0",
		"1995-02-01,100.5",
		"1995-03-01,101.2",
	}, "\n"))

	obs, err := LoadHistoricalCSV(path)
	require.NoError(t, err)
	require.Len(t, obs, 3)

	assert.Equal(t, series.Month{Year: 1995, Month: time.January}, obs[0].Month)
	assert.Equal(t, 100.0, obs[0].CPI)
	assert.Equal(t, 101.2, obs[2].CPI)
}

func TestLoadHistoricalCSV_CPIIndexColumn(t *testing.T) {
	path := writeCSV(t, strings.Join([]string{
		"region,cpi_index,date",
		"GBA,150.5,2010-06-01",
	}, "\n"))

	obs, err := LoadHistoricalCSV(path)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 150.5, obs[0].CPI)
	assert.Equal(t, series.Month{Year: 2010, Month: time.June}, obs[0].Month)
}

func TestLoadHistoricalCSV_MissingFile(t *testing.T) {
	_, err := LoadHistoricalCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, series.IsUpstreamFetch(err))
}

func TestLoadHistoricalCSV_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing columns", "region,value\nGBA,100.0"},
		{"bad date", "date,cpi\nJanuary 1995,100.0"},
		{"bad cpi", "date,cpi\n1995-01-01,abc"},
		{"short row", "date,cpi\n1995-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadHistoricalCSV(writeCSV(t, tt.content))
			require.Error(t, err)
			assert.True(t, series.IsUpstreamFetch(err))
		})
	}
}
