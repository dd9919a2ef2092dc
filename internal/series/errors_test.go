package series

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want func(error) bool
	}{
		{"data integrity", NewDataIntegrity("bad index"), IsDataIntegrity},
		{"no data", NewNoData("store empty"), IsNoData},
		{"missing cpi", NewMissingCPI(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "no record"), IsMissingCPI},
		{"upstream fetch", WrapUpstreamFetch(errors.New("timeout"), "feed"), IsUpstreamFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want(tt.err))

			// Predicates see through wrapping.
			assert.True(t, tt.want(fmt.Errorf("cycle failed: %w", tt.err)))

			// Each predicate matches only its own code.
			for _, other := range tests {
				if other.name != tt.name {
					assert.False(t, other.want(tt.err), "%s matched %s", other.name, tt.name)
				}
			}
		})
	}
}

func TestErrorPredicates_ForeignError(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, IsDataIntegrity(err))
	assert.False(t, IsNoData(err))
	assert.False(t, IsMissingCPI(err))
	assert.False(t, IsUpstreamFetch(err))
	assert.False(t, IsNoData(nil))
}

func TestError_Messages(t *testing.T) {
	e := NewMissingCPI(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "no CPI for requested month")
	assert.Equal(t, "MISSING_CPI_DATA: no CPI for requested month (date=2024-03-15)", e.Error())

	cause := errors.New("connection refused")
	wrapped := WrapUpstreamFetch(cause, "fetching observations")
	assert.Equal(t, "UPSTREAM_FETCH: fetching observations: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	plain := NewNoData("no records on or after year %d", 1995)
	assert.Equal(t, "NO_DATA: no records on or after year 1995", plain.Error())
}
