package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anchor(year int, month time.Month, cpi float64) Record {
	return Record{Month: Month{Year: year, Month: month}, CPIIndex: cpi}
}

func TestInterpolate_ConstantGrowth(t *testing.T) {
	start := anchor(2023, time.January, 100)
	end := anchor(2024, time.January, 200)

	filled, err := Interpolate(start, end, nil)
	require.NoError(t, err)
	require.Len(t, filled, 11)

	// Doubling over 12 months implies 2^(1/12) growth per month.
	wantRate := (math.Pow(2, 1.0/12) - 1) * 100
	for i, r := range filled {
		assert.Equal(t, start.Month.Add(i+1), r.Month)
		assert.InDelta(t, wantRate, r.MonthlyRate, 1e-9)
		assert.Equal(t, SourceInterpolated, r.Source)
	}

	// Halfway point of a geometric doubling is sqrt(2) times the start.
	assert.InDelta(t, 100*math.Sqrt2, filled[5].CPIIndex, 1e-9)

	// Compounding from the start anchor reaches the end anchor.
	last := filled[len(filled)-1]
	assert.InDelta(t, end.CPIIndex, CPIFromRate(last.CPIIndex, wantRate), 1e-6)
}

func TestInterpolate_AnnualFromPrior(t *testing.T) {
	start := anchor(2024, time.March, 110)
	end := anchor(2024, time.June, 120)

	yearAgo := map[Month]float64{
		{Year: 2023, Month: time.April}: 100,
	}
	prior := func(m Month) (float64, bool) {
		cpi, ok := yearAgo[m]
		return cpi, ok
	}

	filled, err := Interpolate(start, end, prior)
	require.NoError(t, err)
	require.Len(t, filled, 2)

	// 2024-04 resolves against 2023-04 and carries a true annual rate.
	april := filled[0]
	assert.False(t, april.Estimated)
	assert.InDelta(t, (april.CPIIndex/100-1)*100, april.AnnualRate, 1e-9)

	// 2024-05 has no year-ago record and falls back to the estimate.
	may := filled[1]
	assert.True(t, may.Estimated)
	assert.InDelta(t, may.MonthlyRate*12, may.AnnualRate, 1e-9)
}

func TestInterpolate_AdjacentAnchorsEmpty(t *testing.T) {
	filled, err := Interpolate(anchor(2024, time.January, 100), anchor(2024, time.February, 101), nil)
	require.NoError(t, err)
	assert.Empty(t, filled)
}

func TestInterpolate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		start Record
		end   Record
	}{
		{"non-positive start", anchor(2024, time.January, 0), anchor(2024, time.June, 110)},
		{"non-positive end", anchor(2024, time.January, 100), anchor(2024, time.June, -1)},
		{"anchors out of order", anchor(2024, time.June, 100), anchor(2024, time.January, 110)},
		{"same month", anchor(2024, time.June, 100), anchor(2024, time.June, 110)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Interpolate(tt.start, tt.end, nil)
			require.Error(t, err)
			assert.True(t, IsDataIntegrity(err))
		})
	}
}
