package llm

import (
	"context"
	"math/rand"
	"time"

	"adreel/internal/apperr"
)

// RetryPolicy collapses the ad-hoc retry loops the pipeline otherwise needs
// (LLM calls, video-model calls, critic re-parses) into one composable
// shape: a bounded number of attempts, exponential backoff with jitter, and
// a predicate deciding whether a given failure is worth retrying at all.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	BackoffFactor  float64
	JitterFraction float64
	Retryable      func(err error) bool
}

// DefaultRetryPolicy matches §5/§9's composable retry policy: up to 3
// retries after the first attempt (4 attempts in all), 1s base delay,
// factor 2 backoff, ±20% jitter, retrying only kinds classified Retryable
// by apperr.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		BaseDelay:      time.Second,
		BackoffFactor:  2,
		JitterFraction: 0.2,
		Retryable: func(err error) bool {
			return apperr.Retryable(apperr.KindOf(err))
		},
	}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts according
// to the backoff schedule, stopping early if ctx is cancelled or if the
// Retryable predicate rejects the latest error. It returns the last error
// observed.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return apperr.New(apperr.Cancelled, "retry", err)
		}
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			break
		}
		sleep := jitter(delay, p.JitterFraction)
		select {
		case <-ctx.Done():
			return apperr.New(apperr.Cancelled, "retry", ctx.Err())
		case <-time.After(sleep):
		}
		if p.BackoffFactor > 0 {
			delay = time.Duration(float64(delay) * p.BackoffFactor)
		}
	}
	return lastErr
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	span := float64(d) * fraction
	offset := (rand.Float64()*2 - 1) * span
	result := float64(d) + offset
	if result < 0 {
		return 0
	}
	return time.Duration(result)
}
