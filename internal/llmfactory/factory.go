// Package llmfactory selects and constructs the active llm.Provider from
// configuration. It is the one place that imports all three backend
// adapters, keeping internal/llm itself free of any concrete provider
// dependency.
package llmfactory

import (
	"fmt"

	"adreel/internal/config"
	"adreel/internal/llm"
	"adreel/internal/llm/anthropic"
	"adreel/internal/llm/google"
	"adreel/internal/llm/openai"
	"adreel/internal/observability"
)

// New builds the configured Provider. All nine agent roles share this one
// provider per process, per §4.1.
func New(cfg config.LLMClientConfig) (llm.Provider, error) {
	httpClient := observability.NewHTTPClient(nil)

	switch cfg.Provider {
	case "anthropic":
		return anthropic.New(cfg.Anthropic, httpClient), nil
	case "openai":
		return openai.New(cfg.OpenAI, httpClient), nil
	case "google":
		client, err := google.New(cfg.Google, httpClient)
		if err != nil {
			return nil, fmt.Errorf("init google provider: %w", err)
		}
		return client, nil
	case "":
		return nil, fmt.Errorf("llm: no provider configured")
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
