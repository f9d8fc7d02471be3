// Package forwarder implements the hub's Forwarder (spec.md §4.4): the
// component that actually issues the outbound call to an upstream service,
// with bounded retries and exponential backoff plus jitter. Retry
// classification follows the teacher's adapter/proxy/core/retry.go
// IsConnectionError pattern; the retry loop itself is grounded on
// original_source/main.py's forward_with_retry, which this hub reproduces
// exactly: 2^i + uniform[0,1) backoff, max_retries+1 total attempts.
package forwarder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/thushan/hub/internal/core/ports"
	"github.com/thushan/hub/internal/util"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPClient is the subset of *http.Client the forwarder needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPForwarder implements ports.Forwarder over net/http.
type HTTPForwarder struct {
	client HTTPClient
}

func NewHTTPForwarder(client HTTPClient) *HTTPForwarder {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPForwarder{client: client}
}

// Forward issues req.Method against req.UpstreamURL+req.EndpointPath,
// retrying retryable failures up to req.MaxRetries additional times
// (max_retries+1 attempts total), sleeping util.RetryBackoff(attempt)
// between attempts. A non-retryable 4xx (other than 408/429) fails fast on
// the first attempt.
func (f *HTTPForwarder) Forward(ctx context.Context, req ports.ForwardRequest) (*ports.ForwardResponse, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
	}

	url := util.JoinURLPath(req.UpstreamURL, req.EndpointPath)

	var lastErr error
	for attempt := 0; attempt <= req.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(util.RetryBackoff(attempt - 1)):
			}
		}

		resp, err := f.attempt(ctx, req, url, body)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", req.MaxRetries, lastErr)
}

func (f *HTTPForwarder) attempt(ctx context.Context, req ports.ForwardRequest, url string, body []byte) (*ports.ForwardResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, req.ConnectTimeout+req.ReadTimeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Method.HasBody() && body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, string(req.Method), url, bodyReader)
	if err != nil {
		return nil, &unretryableError{err: fmt.Errorf("building request: %w", err)}
	}
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err // network-level errors are classified by isRetryable
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if statusIsTransient(resp.StatusCode) {
		return nil, &statusError{code: resp.StatusCode, body: string(respBody)}
	}
	if statusIsFailure(resp.StatusCode) {
		return nil, &unretryableError{err: &statusError{code: resp.StatusCode, body: string(respBody)}}
	}

	out := &ports.ForwardResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") && len(respBody) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(respBody, &decoded); err == nil {
			out.JSONBody = decoded
			out.IsJSON = true
			return out, nil
		}
	}
	out.TextBody = string(respBody)
	return out, nil
}

func statusIsTransient(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

func statusIsFailure(code int) bool {
	return code >= 400 && code < 500 && !statusIsTransient(code)
}

// statusError carries a non-2xx upstream response through the retry loop.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream responded %d: %s", e.code, truncate(e.body, 200))
}

// unretryableError marks an error that should abort the retry loop
// immediately, per spec.md §7's UpstreamFailed kind.
type unretryableError struct {
	err error
}

func (e *unretryableError) Error() string { return e.err.Error() }
func (e *unretryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var unretryable *unretryableError
	if errors.As(err, &unretryable) {
		return false
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return hasConnectionErrorText(err)
}

var connectionErrorSubstrings = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"no route to host",
	"connection timed out",
	"i/o timeout",
	"eof",
}

func hasConnectionErrorText(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range connectionErrorSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ ports.Forwarder = (*HTTPForwarder)(nil)
