package domain

import "time"

// BreakerState is one of the three states spec.md §4.2 names explicitly.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

const (
	DefaultFailureThreshold = 5
	DefaultCoolDown         = 60 * time.Second
)

// BreakerSnapshot is a point-in-time, read-only view of a Breaker, used by
// the dashboard and tests without exposing the live atomics.
type BreakerSnapshot struct {
	State           BreakerState
	FailureCount    int
	LastFailureTime time.Time
	Threshold       int
	CoolDown        time.Duration
}
