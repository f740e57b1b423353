package llm

import (
	"context"
	"testing"
	"time"

	"adreel/internal/apperr"
)

type slowProvider struct{ delay time.Duration }

func (p slowProvider) Chat(ctx context.Context, msgs []Message, params SamplingParams) (Message, error) {
	select {
	case <-time.After(p.delay):
		return Message{Role: "assistant", Content: "ok"}, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func TestDeadlineProviderClassifiesTimeoutAsRetryable(t *testing.T) {
	d := NewDeadlineProvider(slowProvider{delay: time.Second}, 10*time.Millisecond)
	_, err := d.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, SamplingParams{})
	if !apperr.Is(err, apperr.AgentTimeout) {
		t.Fatalf("expected agent_timeout kind, got %v", err)
	}
	if !apperr.Retryable(apperr.KindOf(err)) {
		t.Fatal("deadline expiry must enter the retry path")
	}
}

func TestDeadlineProviderPassesFastCallsThrough(t *testing.T) {
	d := NewDeadlineProvider(slowProvider{delay: time.Millisecond}, time.Second)
	out, err := d.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, SamplingParams{})
	if err != nil || out.Content != "ok" {
		t.Fatalf("unexpected result: %v %v", out, err)
	}
}

func TestDeadlineProviderReportsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDeadlineProvider(slowProvider{delay: time.Second}, time.Second)
	_, err := d.Chat(ctx, []Message{{Role: "user", Content: "hi"}}, SamplingParams{})
	if !apperr.Is(err, apperr.Cancelled) {
		t.Fatalf("expected cancelled kind, got %v", err)
	}
}
