package util

import (
	"math"
	"math/rand"
	"time"
)

// RetryBackoff computes the delay before retry attempt i (0-indexed) for the
// Forwarder's bounded retry loop: 2^i seconds plus a uniform[0,1) jitter
// term, matching the legacy hub's forward_with_retry backoff.
func RetryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	seconds := math.Pow(2, float64(attempt)) + rand.Float64()
	return time.Duration(seconds * float64(time.Second))
}
