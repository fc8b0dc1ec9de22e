package session

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackoff doubles from min up to max with ±50% jitter and never stops.
func newBackoff(min, max time.Duration) backoff.BackOff {
	if min <= 0 {
		min = time.Millisecond
	}
	if max < min {
		max = min
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
