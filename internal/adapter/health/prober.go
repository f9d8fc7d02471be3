// Package health implements the hub's Health Prober (spec.md §4.3): a
// one-shot reachability check issued before every dispatched request.
// Grounded on the teacher's adapter/health/checker.go HTTPHealthChecker,
// trimmed to the single-probe shape the hub needs (no heap scheduler, no
// worker pool - the legacy hub's health_check_service is a synchronous
// call on the request path, not a background sweep).
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/thushan/hub/internal/core/ports"
)

const (
	// DefaultTimeout matches the legacy hub's health_check_service, which
	// uses a fixed 5s timeout regardless of the endpoint's own configured
	// connect/read timeouts.
	DefaultTimeout = 5 * time.Second
)

// probePaths are tried in order; the first reachable one with status < 500
// decides the outcome, matching main.py's health_check_service probing
// "/health", then "/", then "".
var probePaths = []string{"/health", "/", ""}

// HTTPClient is the subset of *http.Client the prober needs, narrowed for
// testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProber implements ports.HealthProber over plain HTTP GETs.
type HTTPProber struct {
	client  HTTPClient
	timeout time.Duration
}

func NewHTTPProber(client HTTPClient) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPProber{client: client, timeout: DefaultTimeout}
}

// Probe reports whether baseURL is reachable. It tries each probePaths
// entry in turn and succeeds on the first response with status < 500;
// a probe that can't even connect falls through to the next path.
func (p *HTTPProber) Probe(ctx context.Context, baseURL string) bool {
	for _, path := range probePaths {
		if p.probeOne(ctx, baseURL+path) {
			return true
		}
	}
	return false
}

func (p *HTTPProber) probeOne(ctx context.Context, url string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

var _ ports.HealthProber = (*HTTPProber)(nil)
