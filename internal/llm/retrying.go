package llm

import (
	"context"
)

// RetryingProvider wraps a Provider with a RetryPolicy, so every agent call
// that fails with a TransientNetwork or UpstreamRateLimit kind is retried
// with backoff per §5/§7, without agentsys itself needing to know about
// retry policy.
type RetryingProvider struct {
	Provider Provider
	Policy   RetryPolicy
}

// NewRetryingProvider wraps provider with the given policy.
func NewRetryingProvider(provider Provider, policy RetryPolicy) *RetryingProvider {
	return &RetryingProvider{Provider: provider, Policy: policy}
}

// Chat implements Provider.
func (r *RetryingProvider) Chat(ctx context.Context, msgs []Message, params SamplingParams) (Message, error) {
	var out Message
	err := r.Policy.Do(ctx, func(attempt int) error {
		var callErr error
		out, callErr = r.Provider.Chat(ctx, msgs, params)
		return callErr
	})
	if err != nil {
		return Message{}, err
	}
	return out, nil
}
