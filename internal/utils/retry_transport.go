package utils

import (
	"io"
	"net/http"
	"time"
)

const retryBaseDelay = 250 * time.Millisecond

// retryTransport retries idempotent requests that fail with 429 or 5xx, or
// with a transport error, using exponential backoff.
type retryTransport struct {
	next       http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
}

func newRetryTransport(next http.RoundTripper, maxRetries int) *retryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retryTransport{next: next, maxRetries: maxRetries, baseDelay: retryBaseDelay}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.next.RoundTrip(req)
	}

	delay := t.baseDelay
	for attempt := 0; ; attempt++ {
		resp, err := t.next.RoundTrip(req)
		if attempt >= t.maxRetries || !shouldRetry(resp, err) {
			return resp, err
		}
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}
