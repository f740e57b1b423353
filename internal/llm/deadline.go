package llm

import (
	"context"
	"errors"
	"net"
	"time"

	"adreel/internal/apperr"
)

// DeadlineProvider bounds every Chat call with a per-call deadline and
// classifies transport-level failures into the apperr taxonomy so the
// retry policy can tell a timed-out or refused connection (retryable)
// from a malformed request (not). Deadline expiry is treated as a
// transport failure and enters the retry path, per the concurrency model.
type DeadlineProvider struct {
	Provider Provider
	Timeout  time.Duration
}

// NewDeadlineProvider wraps provider with a per-call deadline.
func NewDeadlineProvider(provider Provider, timeout time.Duration) *DeadlineProvider {
	return &DeadlineProvider{Provider: provider, Timeout: timeout}
}

// Chat implements Provider.
func (d *DeadlineProvider) Chat(ctx context.Context, msgs []Message, params SamplingParams) (Message, error) {
	callCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	out, err := d.Provider.Chat(callCtx, msgs, params)
	if err == nil {
		return out, nil
	}
	return Message{}, classifyTransport(ctx, err)
}

// classifyTransport tags an unclassified provider error with the apperr
// kind the retry predicate needs. Errors that already carry a kind pass
// through untouched.
func classifyTransport(parent context.Context, err error) error {
	var tagged *apperr.Error
	if errors.As(err, &tagged) {
		return err
	}
	var netErr net.Error
	switch {
	case parent.Err() != nil:
		return apperr.New(apperr.Cancelled, "llm", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.New(apperr.AgentTimeout, "llm", err)
	case errors.As(err, &netErr):
		return apperr.New(apperr.TransientNetwork, "llm", err)
	default:
		return err
	}
}
