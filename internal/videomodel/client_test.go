package videomodel

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"adreel/internal/apperr"
	"adreel/internal/domain"
)

func TestSynthesizeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"video_base64":"` + base64.StdEncoding.EncodeToString([]byte("fakevideo")) + `","cost":0.42}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k"}, srv.Client())
	data, cost, err := c.Synthesize(context.Background(), domain.NewVideoPromptParameters(1, "a bottle of perfume", 6, nil))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(data) != "fakevideo" {
		t.Fatalf("data = %q", data)
	}
	if cost != 0.42 {
		t.Fatalf("cost = %v, want 0.42", cost)
	}
}

func TestSynthesizeContentRejectedIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error_code":"content_policy","message":"disallowed content"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, srv.Client())
	_, _, err := c.Synthesize(context.Background(), domain.NewVideoPromptParameters(1, "x", 6, nil))
	if err == nil {
		t.Fatal("expected error")
	}
	if apperr.KindOf(err) != apperr.UpstreamContentRejected {
		t.Fatalf("kind = %v, want UpstreamContentRejected", apperr.KindOf(err))
	}
	if apperr.Retryable(apperr.KindOf(err)) {
		t.Fatal("content-rejected errors must not be retryable")
	}
}

func TestSynthesizeRateLimitIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, srv.Client())
	_, _, err := c.Synthesize(context.Background(), domain.NewVideoPromptParameters(1, "x", 6, nil))
	if apperr.KindOf(err) != apperr.UpstreamRateLimit {
		t.Fatalf("kind = %v, want UpstreamRateLimit", apperr.KindOf(err))
	}
	if !apperr.Retryable(apperr.KindOf(err)) {
		t.Fatal("rate-limit errors must be retryable")
	}
}
