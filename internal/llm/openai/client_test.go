package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adreel/internal/config"
	"adreel/internal/llm"
)

func TestChatReturnsChoice(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli := New(config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m"}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := cli.Chat(ctx, []llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}, llm.SamplingParams{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Content != "hello" {
		t.Fatalf("expected hello, got %q", msg.Content)
	}
}

func TestChatWithImageAttachmentSendsDataURL(t *testing.T) {
	var gotBody map[string]any
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli := New(config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m"}, srv.Client())
	_, err := cli.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "describe", Images: []llm.ImageAttachment{
			{Data: []byte("fakejpegbytes"), MIMEType: "image/jpeg"},
		}},
	}, llm.SamplingParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	cli := New(config.OpenAIConfig{APIKey: "k"}, http.DefaultClient)
	if _, err := cli.Chat(context.Background(), nil, llm.SamplingParams{}); err == nil {
		t.Fatal("expected error for empty messages")
	}
}
