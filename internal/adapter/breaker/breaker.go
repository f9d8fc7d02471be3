// Package breaker implements the hub's per-route circuit breaker (spec.md
// §4.2), grounded on the teacher's atomics-based
// adapter/health/circuit_breaker.go: failures and timestamps live in
// sync/atomic fields rather than behind a mutex, so CanExecute never blocks
// a concurrent RecordFailure/RecordSuccess.
package breaker

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/core/ports"
)

// Breaker is a single route's CLOSED/OPEN/HALF_OPEN state machine. New
// returns a CLOSED breaker; the zero value has a threshold of 0 and is not
// usable as-is.
type Breaker struct {
	failures        int64
	lastFailureNano int64
	halfOpenInFlight int32
	threshold        int64
	coolDown         time.Duration
}

func New(threshold int, coolDown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = domain.DefaultFailureThreshold
	}
	if coolDown <= 0 {
		coolDown = domain.DefaultCoolDown
	}
	return &Breaker{threshold: int64(threshold), coolDown: coolDown}
}

// CanExecute reports whether a call is allowed right now. OPEN transitions
// to HALF_OPEN (one probe admitted) once cool_down has elapsed since the
// last recorded failure; the admitted probe is tracked so concurrent
// callers don't all pile through at once.
func (b *Breaker) CanExecute(now time.Time) bool {
	failures := atomic.LoadInt64(&b.failures)
	if failures < b.threshold {
		return true
	}

	lastFailure := time.Unix(0, atomic.LoadInt64(&b.lastFailureNano))
	if now.Sub(lastFailure) <= b.coolDown {
		return false
	}

	// Cool-down elapsed: admit exactly one half-open probe.
	return atomic.CompareAndSwapInt32(&b.halfOpenInFlight, 0, 1)
}

func (b *Breaker) RecordSuccess() {
	atomic.StoreInt64(&b.failures, 0)
	atomic.StoreInt32(&b.halfOpenInFlight, 0)
}

func (b *Breaker) RecordFailure(now time.Time) {
	atomic.AddInt64(&b.failures, 1)
	atomic.StoreInt64(&b.lastFailureNano, now.UnixNano())
	atomic.StoreInt32(&b.halfOpenInFlight, 0)
}

func (b *Breaker) Snapshot(now time.Time) domain.BreakerSnapshot {
	failures := atomic.LoadInt64(&b.failures)
	lastFailureNano := atomic.LoadInt64(&b.lastFailureNano)

	state := domain.BreakerClosed
	var lastFailure time.Time
	if failures >= b.threshold {
		lastFailure = time.Unix(0, lastFailureNano)
		if now.Sub(lastFailure) <= b.coolDown {
			state = domain.BreakerOpen
		} else {
			state = domain.BreakerHalfOpen
		}
	}

	return domain.BreakerSnapshot{
		State:           state,
		FailureCount:    int(failures),
		LastFailureTime: lastFailure,
		Threshold:       int(b.threshold),
		CoolDown:        b.coolDown,
	}
}

var _ ports.Breaker = (*Breaker)(nil)

// Table lazily creates and looks up per-route Breakers, keyed by
// domain.BreakerKey, backed by xsync.Map exactly as the teacher's
// adapter/registry/memory_registry.go uses xsync.Map for its own concurrent
// index.
type Table struct {
	breakers  *xsync.Map[domain.BreakerKey, *Breaker]
	threshold int
	coolDown  time.Duration
}

func NewTable(threshold int, coolDown time.Duration) *Table {
	return &Table{
		breakers:  xsync.NewMap[domain.BreakerKey, *Breaker](),
		threshold: threshold,
		coolDown:  coolDown,
	}
}

func (t *Table) Get(key domain.BreakerKey) ports.Breaker {
	b, _ := t.breakers.LoadOrCompute(key, func() (*Breaker, bool) {
		return New(t.threshold, t.coolDown), false
	})
	return b
}

func (t *Table) Remove(key domain.BreakerKey) {
	t.breakers.Delete(key)
}

var _ ports.BreakerTable = (*Table)(nil)
