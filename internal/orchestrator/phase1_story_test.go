package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"adreel/internal/convrecorder"
	"adreel/internal/llm"
)

// sequencedProvider returns a distinct story draft per Director call and a
// scripted score per Critic call, so cap-exhaustion behavior is observable.
type sequencedProvider struct {
	mu           sync.Mutex
	directorCall int
	criticCall   int
	scores       []int
}

func (p *sequencedProvider) Chat(ctx context.Context, msgs []llm.Message, params llm.SamplingParams) (llm.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sys := msgs[0].Content
	switch {
	case strings.Contains(sys, "Story Director"):
		p.directorCall++
		return llm.Message{Role: "assistant", Content: fmt.Sprintf("draft %d", p.directorCall)}, nil
	case strings.Contains(sys, "Story Critic"):
		score := p.scores[p.criticCall]
		p.criticCall++
		return llm.Message{
			Role:    "assistant",
			Content: fmt.Sprintf(`{"score": %d, "status": "needs_revision", "critique": "flat arc", "strengths": [], "improvements": [], "priority_fixes": []}`, score),
		}, nil
	default:
		return llm.Message{}, fmt.Errorf("unexpected role prompt")
	}
}

func TestStoryCapExhaustionKeepsHighestScoringDraft(t *testing.T) {
	provider := &sequencedProvider{scores: []int{62, 74, 78}}
	o := New(provider, nil, nil, testConfig())
	recorder := convrecorder.New("g1")

	story, err := o.runStoryPhase(context.Background(), Input{Prompt: "perfume advertisement"}, 3, recorder, nil)
	if err != nil {
		t.Fatalf("runStoryPhase: %v", err)
	}
	if story.Score != 78 {
		t.Fatalf("story score = %v, want 78", story.Score)
	}
	if story.Content != "draft 3" {
		t.Fatalf("kept draft %q, want the iteration-3 draft", story.Content)
	}
	if provider.directorCall != 3 {
		t.Fatalf("director ran %d times, want 3", provider.directorCall)
	}
}

func TestStoryEarlyTerminationStopsIterating(t *testing.T) {
	provider := &sequencedProvider{scores: []int{91}}
	o := New(provider, nil, nil, testConfig())
	recorder := convrecorder.New("g2")

	story, err := o.runStoryPhase(context.Background(), Input{Prompt: "sneaker advertisement"}, 3, recorder, nil)
	if err != nil {
		t.Fatalf("runStoryPhase: %v", err)
	}
	if story.Score != 91 {
		t.Fatalf("story score = %v, want 91", story.Score)
	}
	if provider.directorCall != 1 {
		t.Fatalf("director ran %d times after approval, want 1", provider.directorCall)
	}
}
