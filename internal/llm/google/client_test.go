package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"adreel/internal/config"
	"adreel/internal/llm"
)

func TestChatSuccess(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		defer r.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello"}]}}],"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.GoogleConfig{APIKey: "k", Model: "test-model", BaseURL: srv.URL}
	client, err := New(cfg, srv.Client())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	msg, err := client.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "do"},
		{Role: "user", Content: "hi"},
	}, llm.SamplingParams{Model: "test-model"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if msg.Content != "hello" {
		t.Fatalf("content = %q, want %q", msg.Content, "hello")
	}
	if gotPath == "" {
		t.Fatal("expected a request path to be recorded")
	}
}

func TestChatBlockedBySafety(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(config.GoogleConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, llm.SamplingParams{}); err == nil {
		t.Fatal("expected blocked-response error")
	}
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	client, err := New(config.GoogleConfig{APIKey: "k"}, http.DefaultClient)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Chat(context.Background(), nil, llm.SamplingParams{}); err == nil {
		t.Fatal("expected error for empty messages")
	}
}
