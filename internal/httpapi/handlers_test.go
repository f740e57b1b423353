package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adreel/internal/config"
	"adreel/internal/coordinator"
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
		return llm.Message{Content: `{"score": 92, "status": "approved", "critique": "strong", "strengths": [], "improvements": [], "priority_fixes": []}`}, nil
	default:
		return llm.Message{}, nil
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.PipelineConfig{
		MaxStoryIterations:     3,
		StoryApprovalThreshold: 85,
		ProgressBusBufferDepth: 64,
		ScratchBasePath:        t.TempDir(),
	}
	buses := progressbus.NewRegistry(cfg.ProgressBusBufferDepth)
	store := persistence.NewMemoryGenerationStore()
	objStore := objectstore.NewMemoryStore()
	orch := orchestrator.New(storyOnlyProvider{}, nil, nil, cfg)
	coord := coordinator.New(buses, store, objStore, orch, cfg)
	return NewServer(coord, buses, store)
}

func TestSubmitEndpointAcceptsValidPrompt(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"prompt":                  "A cinematic ad for a luxury watch, golden hour, aspirational tone",
		"generate_scenes":         false,
		"generate_videos":         false,
		"target_duration_seconds": 30,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/generations", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.GenerationID == "" {
		t.Fatal("expected a generation_id")
	}
}

func TestSubmitEndpointRejectsShortPrompt(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"prompt": "short"})
	req := httptest.NewRequest(http.MethodPost, "/api/generations", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetEndpointReturnsTerminalGeneration(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"prompt":          "A cinematic ad for a luxury watch, golden hour, aspirational tone",
		"generate_scenes": false,
		"generate_videos": false,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/generations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var sub submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		getReq := httptest.NewRequest(http.MethodGet, "/api/generations/"+sub.GenerationID, nil)
		getRec := httptest.NewRecorder()
		srv.ServeHTTP(getRec, getReq)

		var got generationResponse
		if err := json.Unmarshal(getRec.Body.Bytes(), &got); err == nil && got.Status == "completed" {
			if got.StoryScore != 92 {
				t.Fatalf("story score = %v, want 92", got.StoryScore)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for generation to complete")
}

func TestCancelEndpointRejectsUnknownGeneration(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generations/does-not-exist/cancel", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
