package reconcile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pampa-labs/inflationd/internal/series"
)

func TestOverrideSet_Lookup(t *testing.T) {
	set := OverrideSet{
		Version: "2024-06",
		Entries: []Override{
			{Year: 2024, Month: 5, MonthlyRate: 4.2},
			{Year: 2024, Month: 6, MonthlyRate: 4.6},
		},
	}

	ov, found := set.Lookup(series.Month{Year: 2024, Month: time.May})
	require.True(t, found)
	assert.Equal(t, 4.2, ov.MonthlyRate)

	_, found = set.Lookup(series.Month{Year: 2024, Month: time.July})
	assert.False(t, found)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	content := `
version: "2024-06"
entries:
  - year: 2024
    month: 5
    monthly_rate: 4.2
  - year: 2024
    month: 6
    monthly_rate: 4.6
    annual_rate: 271.5
    cpi_index: 7864.13
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	set, err := LoadOverrides(path)
	require.NoError(t, err)

	assert.Equal(t, "2024-06", set.Version)
	require.Len(t, set.Entries, 2)
	assert.Nil(t, set.Entries[0].AnnualRate)
	require.NotNil(t, set.Entries[1].AnnualRate)
	assert.Equal(t, 271.5, *set.Entries[1].AnnualRate)
	require.NotNil(t, set.Entries[1].CPIIndex)
	assert.Equal(t, 7864.13, *set.Entries[1].CPIIndex)
}

func TestLoadOverrides_BadMonth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	content := `
version: bad
entries:
  - year: 2024
    month: 13
    monthly_rate: 1.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadOverrides(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "month 13")
}

func TestLoadOverrides_MissingFile(t *testing.T) {
	_, err := LoadOverrides(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
