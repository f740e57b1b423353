package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"adreel/internal/apperr"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BaseDelay:     time.Millisecond,
		BackoffFactor: 2,
		Retryable: func(err error) bool {
			return apperr.Retryable(apperr.KindOf(err))
		},
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(attempt int) error {
		calls++
		if calls < 3 {
			return apperr.Newf(apperr.TransientNetwork, "test", "dial timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnNonRetryableKind(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(attempt int) error {
		calls++
		return apperr.Newf(apperr.UpstreamContentRejected, "test", "policy refused")
	})
	if !apperr.Is(err, apperr.UpstreamContentRejected) {
		t.Fatalf("expected content-rejected error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call for a non-retryable kind, got %d", calls)
	}
}

func TestDoReturnsLastErrorAfterExhaustion(t *testing.T) {
	calls := 0
	want := apperr.Newf(apperr.TransientNetwork, "test", "still down")
	err := fastPolicy().Do(context.Background(), func(attempt int) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected last error %v, got %v", want, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := fastPolicy().Do(ctx, func(attempt int) error {
		t.Fatal("fn must not run once the context is cancelled")
		return nil
	})
	if !apperr.Is(err, apperr.Cancelled) {
		t.Fatalf("expected cancelled kind, got %v", err)
	}
}

func TestJitterStaysWithinFraction(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := jitter(base, 0.2)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("jittered delay %v outside +/-20%% of %v", d, base)
		}
	}
}
