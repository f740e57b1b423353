package agentsys

import (
	"context"
	"testing"

	"adreel/internal/convrecorder"
	"adreel/internal/domain"
	"adreel/internal/llm"
)

type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) Chat(ctx context.Context, msgs []llm.Message, params llm.SamplingParams) (llm.Message, error) {
	idx := p.calls
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	p.calls++
	return llm.Message{Role: "assistant", Content: p.responses[idx]}, nil
}

func TestRunAgentFreeFormRole(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"a dazzling product story"}}
	recorder := convrecorder.New("gen-1")

	raw, parsed, err := RunAgent(context.Background(), provider, StoryDirectorConfig(), "write it", nil, recorder, nil, domain.InteractionMetadata{Iteration: 1})
	if err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	if raw != "a dazzling product story" || parsed != raw {
		t.Fatalf("unexpected output: raw=%q parsed=%v", raw, parsed)
	}
	if len(recorder.Snapshot()) != 2 {
		t.Fatalf("expected prompt+response recorded, got %d", len(recorder.Snapshot()))
	}
}

func TestRunAgentRetriesOnMalformedCriticOutput(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"not json at all",
		`{"score": 88, "status": "approved", "critique": "great"}`,
	}}
	recorder := convrecorder.New("gen-1")

	_, parsed, err := RunAgent(context.Background(), provider, StoryCriticConfig(), "critique this", nil, recorder, nil, domain.InteractionMetadata{Iteration: 1})
	if err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	result := parsed.(CriticResult)
	if result.Score != 88 {
		t.Fatalf("score = %d, want 88", result.Score)
	}
	if provider.calls != 2 {
		t.Fatalf("expected 2 calls (1 retry), got %d", provider.calls)
	}
}

func TestRunAgentFailsAfterExhaustingRetries(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"nope", "still nope", "nope again", "nope once more"}}
	recorder := convrecorder.New("gen-1")

	_, _, err := RunAgent(context.Background(), provider, StoryCriticConfig(), "critique this", nil, recorder, nil, domain.InteractionMetadata{})
	if err == nil {
		t.Fatal("expected error after exhausting malformed-response retries")
	}
	if provider.calls != malformedRetries+1 {
		t.Fatalf("expected %d calls (1 initial + %d retries), got %d", malformedRetries+1, malformedRetries, provider.calls)
	}
}
