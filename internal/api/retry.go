package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultRetryBaseDelay = 1 * time.Second
	maxRetryDelay         = 30 * time.Second
)

// RetryPolicy opts a Client into retrying idempotent requests after
// transport failures, 429, and 5xx responses. A nil policy never retries.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// NewRetryPolicy returns a policy, or nil when maxRetries is not positive.
func NewRetryPolicy(maxRetries int, baseDelay time.Duration) *RetryPolicy {
	if maxRetries <= 0 {
		return nil
	}
	if baseDelay < 0 {
		baseDelay = 0
	}
	return &RetryPolicy{MaxRetries: maxRetries, BaseDelay: baseDelay}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func (p *RetryPolicy) shouldRetry(method string, status int, err error, attempt int) bool {
	if p == nil || attempt > p.MaxRetries || !isIdempotent(method) {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return status == http.StatusTooManyRequests || status >= 500
}

// delay honors Retry-After when present, otherwise backs off exponentially.
func (p *RetryPolicy) delay(attempt int, h http.Header) time.Duration {
	if d, ok := retryAfterDuration(h); ok {
		return d
	}
	if attempt < 1 {
		attempt = 1
	}
	// Shifts past 30 overflow for any useful base delay.
	if attempt-1 >= 30 {
		return maxRetryDelay
	}
	d := p.BaseDelay * time.Duration(1<<(attempt-1))
	if (d <= 0 && p.BaseDelay > 0) || d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

// sleepWithContext waits for the duration or returns early on context cancellation.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfterDuration parses Retry-After header values (seconds or HTTP date),
// capped at maxRetryDelay.
func retryAfterDuration(h http.Header) (time.Duration, bool) {
	if h == nil {
		return 0, false
	}
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			secs = 0
		}
		if secs > int(maxRetryDelay/time.Second) {
			return maxRetryDelay, true
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return min(d, maxRetryDelay), true
	}
	return 0, false
}
