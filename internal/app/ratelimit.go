package app

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/thushan/hub/internal/logger"
	"github.com/thushan/hub/internal/util"
)

// registrationBurst/registrationRate bound POST /register against
// registration storms, per caller. Grounded on the teacher's
// app/server_rate_limit.go per-IP sync.Map of buckets, but built on
// golang.org/x/time/rate instead of hand-rolled atomics - the hub has no
// need for the teacher's global+per-IP+health-endpoint tiering, only a
// single per-caller bucket on one route.
const (
	registrationRatePerSecond = 20
	registrationBurst         = 40
)

// registerLimiter guards the Registration API with one token bucket per
// client IP, extracted via util.GetClientIP (trusting X-Forwarded-For/
// X-Real-IP only from configured trustedCIDRs, per spec.md §6).
type registerLimiter struct {
	trustProxyHeaders bool
	trustedCIDRs      []*net.IPNet

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	log     *logger.StyledLogger
}

func newRegisterLimiter(log *logger.StyledLogger, trustProxyHeaders bool, trustedCIDRs []*net.IPNet) *registerLimiter {
	return &registerLimiter{
		trustProxyHeaders: trustProxyHeaders,
		trustedCIDRs:      trustedCIDRs,
		buckets:           make(map[string]*rate.Limiter),
		log:               log,
	}
}

func (l *registerLimiter) bucketFor(clientIP string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[clientIP]
	if !ok {
		b = rate.NewLimiter(rate.Limit(registrationRatePerSecond), registrationBurst)
		l.buckets[clientIP] = b
	}
	return b
}

func (l *registerLimiter) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := util.GetClientIP(r, l.trustProxyHeaders, l.trustedCIDRs)

		if !l.bucketFor(clientIP).Allow() {
			l.log.Warn("registration request rejected: rate limit exceeded", "client_ip", clientIP)
			http.Error(w, `{"status":"error","message":"too many registration requests"}`, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
