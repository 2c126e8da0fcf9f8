package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Fetch failures.
var (
	ErrStatus      = errors.New("resilience: unexpected response status")
	ErrInvalidBody = errors.New("resilience: response rejected")
)

// maxFetchBytes bounds bodies read by Fetch.
const maxFetchBytes = 4 << 20

// HTTPClient wraps an http.Client with retry, timeout and circuit-breaker logic. It
// backs the remote catalog download. A nil Breaker disables the circuit.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
	// Validate, when set, inspects a 2xx body. A rejected body counts against the
	// breaker like a server error but is not retried.
	Validate func(body []byte) error
}

// Fetch GETs url and returns the body. Server errors and transport failures are
// retried with exponential backoff; 4xx answers are returned immediately and do not
// count against the breaker. While the breaker is open Fetch fails with an error
// matching ErrOpenCircuit without touching the network.
func (cl HTTPClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	maxAttempts := max(cl.MaxAttempts, 1)

	var body []byte
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retry := false
		err = breaker.Do(ctx, func(ctx context.Context) error {
			var callErr error
			body, retry, callErr = cl.fetchOnce(ctx, url)
			if callErr != nil && !retry {
				return Permanent(callErr)
			}
			if callErr == nil && cl.Validate != nil {
				if err := cl.Validate(body); err != nil {
					return fmt.Errorf("%w: %v", ErrInvalidBody, err)
				}
			}
			return callErr
		})
		if err == nil || !retry || ctx.Err() != nil || attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(Backoff(cl.BaseBackoff, attempt, cl.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Backoff returns base doubled per attempt after the first, spread by jitter (0.2 is
// plus or minus 20%).
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << max(attempt-1, 0)
	if jitter <= 0 {
		return d
	}
	spread := float64(d) * jitter
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// fetchOnce performs a single attempt and reports whether a failure is retryable.
func (cl HTTPClient) fetchOnce(ctx context.Context, url string) ([]byte, bool, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	var callCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := cl.Client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
