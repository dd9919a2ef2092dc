package reconcile

import "time"

// Clock supplies "now" to the driver so freshness decisions are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by wall time.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
