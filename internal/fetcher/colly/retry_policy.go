package collyfetcher

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"
)

// DefaultRetryStatuses are the response codes treated as transient.
var DefaultRetryStatuses = []int{
	http.StatusForbidden,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryConfig tunes the retry policy. The n-th retry waits
// BackoffFactor * 2^(n-1), capped at MaxBackoff, plus up to Jitter.
type RetryConfig struct {
	MaxRetries    int
	BackoffFactor time.Duration
	MaxBackoff    time.Duration
	Jitter        time.Duration
	Statuses      []int
}

// RetryPolicy decides whether and when a failed fetch is retried.
type RetryPolicy struct {
	maxRetries    int
	backoffFactor time.Duration
	maxBackoff    time.Duration
	jitter        time.Duration
	statuses      map[int]struct{}
}

// NewRetryPolicy builds a policy; a nil Statuses slice means DefaultRetryStatuses.
func NewRetryPolicy(cfg RetryConfig) *RetryPolicy {
	statuses := cfg.Statuses
	if statuses == nil {
		statuses = DefaultRetryStatuses
	}
	set := make(map[int]struct{}, len(statuses))
	for _, code := range statuses {
		set[code] = struct{}{}
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 120 * time.Second
	}
	return &RetryPolicy{
		maxRetries:    max(0, cfg.MaxRetries),
		backoffFactor: cfg.BackoffFactor,
		maxBackoff:    maxBackoff,
		jitter:        cfg.Jitter,
		statuses:      set,
	}
}

// Retryable reports whether err is a transient failure.
func (p *RetryPolicy) Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		_, ok := p.statuses[statusErr.StatusCode]
		return ok
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ShouldRetry decides whether attempt (zero-based) may be followed by another.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.maxRetries {
		return false
	}
	return p.Retryable(err)
}

// Backoff returns the wait before the retry that follows attempt.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.backoffFactor) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxBackoff) {
		delay = float64(p.maxBackoff)
	}
	return time.Duration(delay) + p.randomJitter()
}

func (p *RetryPolicy) randomJitter() time.Duration {
	if p.jitter <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(p.jitter)))
	if err != nil {
		return p.jitter / 2
	}
	return time.Duration(n.Int64())
}
