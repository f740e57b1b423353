package coordinator

import (
	"context"
	"strings"
	"testing"
	"time"

	"adreel/internal/config"
	"adreel/internal/domain"
	"adreel/internal/llm"
	"adreel/internal/objectstore"
	"adreel/internal/orchestrator"
	"adreel/internal/persistence"
	"adreel/internal/progressbus"
)

type storyOnlyProvider struct{}

func (storyOnlyProvider) Chat(ctx context.Context, msgs []llm.Message, params llm.SamplingParams) (llm.Message, error) {
	sys := msgs[0].Content
	switch {
	case strings.Contains(sys, "Story Director"):
		return llm.Message{Content: "A heartwarming ad about a watch that marks every milestone."}, nil
	case strings.Contains(sys, "Story Critic"):
		return llm.Message{Content: `{"score": 91, "status": "approved", "critique": "strong", "strengths": [], "improvements": [], "priority_fixes": []}`}, nil
	default:
		return llm.Message{}, nil
	}
}

func newTestCoordinator() (*Coordinator, *progressbus.Registry, persistence.GenerationStore) {
	cfg := config.PipelineConfig{
		MaxStoryIterations:     3,
		StoryApprovalThreshold: 85,
		ProgressBusBufferDepth: 64,
		ScratchBasePath:        "/tmp/adreel-test",
	}
	buses := progressbus.NewRegistry(cfg.ProgressBusBufferDepth)
	store := persistence.NewMemoryGenerationStore()
	objStore := objectstore.NewMemoryStore()
	orch := orchestrator.New(storyOnlyProvider{}, nil, nil, cfg)
	c := New(buses, store, objStore, orch, cfg)
	return c, buses, store
}

func TestSubmitReturnsImmediatelyAndCompletesInBackground(t *testing.T) {
	c, _, store := newTestCoordinator()

	id, err := c.Submit(context.Background(), Submission{
		UserID: "user-1",
		Prompt: "A cinematic ad for a luxury watch, golden hour, aspirational tone",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generation ID")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g, err := store.Get(context.Background(), id)
		if err == nil && g.Status != domain.StatusProcessing {
			if g.Status != domain.StatusCompleted {
				t.Fatalf("status = %v, want completed", g.Status)
			}
			if g.StoryScore != 91 {
				t.Fatalf("story score = %v, want 91", g.StoryScore)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for generation to complete")
}

func TestSubmitRejectsShortPrompt(t *testing.T) {
	c, _, _ := newTestCoordinator()
	if _, err := c.Submit(context.Background(), Submission{UserID: "user-1", Prompt: "short"}); err == nil {
		t.Fatal("expected validation error for short prompt")
	}
}

func TestSubmitRejectsTooManyReferenceImages(t *testing.T) {
	c, _, _ := newTestCoordinator()
	imgs := make([]ReferenceImageInput, 4)
	for i := range imgs {
		imgs[i] = ReferenceImageInput{Name: "ref.jpg", MIMEType: "image/jpeg", Data: []byte("x")}
	}
	_, err := c.Submit(context.Background(), Submission{
		UserID:          "user-1",
		Prompt:          "A cinematic ad for a luxury watch, golden hour, aspirational tone",
		ReferenceImages: imgs,
	})
	if err == nil {
		t.Fatal("expected validation error for too many reference images")
	}
}
