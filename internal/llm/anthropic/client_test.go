package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"adreel/internal/config"
	"adreel/internal/llm"
)

func minimalUsage() sdk.Usage {
	return sdk.Usage{InputTokens: 10, OutputTokens: 5}
}

func TestChatReturnsText(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		defer r.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			ID:         "msg_1",
			Type:       constant.Message("message"),
			Role:       constant.Assistant("assistant"),
			Model:      sdk.ModelClaudeSonnet4_5,
			StopReason: sdk.StopReasonEndTurn,
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "hello"},
			},
			Usage: minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	client := New(config.AnthropicConfig{APIKey: "k", Model: "m", BaseURL: srv.URL}, srv.Client())
	msg, err := client.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}, llm.SamplingParams{Model: "m"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if msg.Content != "hello" {
		t.Fatalf("content = %q, want %q", msg.Content, "hello")
	}
	if gotPath != "/v1/messages" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestChatWithImageAttachment(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		defer r.Body.Close()
		w.Header().Set("Content-Type", "application/json")
		resp := sdk.Message{
			Type:  constant.Message("message"),
			Role:  constant.Assistant("assistant"),
			Model: sdk.ModelClaudeSonnet4_5,
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "ok"},
			},
			Usage: minimalUsage(),
		}
		b, _ := json.Marshal(resp)
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)

	client := New(config.AnthropicConfig{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	_, err := client.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "describe this", Images: []llm.ImageAttachment{
			{Data: []byte("fakepngbytes"), MIMEType: "image/png"},
		}},
	}, llm.SamplingParams{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	client := New(config.AnthropicConfig{APIKey: "k"}, http.DefaultClient)
	if _, err := client.Chat(context.Background(), nil, llm.SamplingParams{}); err == nil {
		t.Fatal("expected error for empty messages")
	}
}
