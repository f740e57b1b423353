package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adreel/internal/domain"
)

// TestStreamEndpointCreatesBusForUnknownGeneration pins down Scenario D /
// Testable Property 11: a subscriber may attach before the producer calls
// Create, and must still receive every event published afterward with no
// 404 in between. The stream must stay open across intermediate milestone
// completions and close only on the genuine terminal event.
func TestStreamEndpointCreatesBusForUnknownGeneration(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/generations/late-subscriber/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.ServeHTTP(rec, req)
		close(done)
	}()

	// Give handleStream a chance to subscribe before anything is published,
	// so the bus for this generation doesn't exist until the handler
	// creates it via GetOrCreate.
	time.Sleep(20 * time.Millisecond)

	bus := srv.buses.GetOrCreate("late-subscriber")
	bus.Publish(domain.ProgressEvent{Step: domain.StepInit, Status: domain.EventInProgress, Progress: 0, Message: "generation accepted"})
	bus.Publish(domain.ProgressEvent{Step: domain.StepUpload, Status: domain.EventCompleted, Progress: 10, Message: "reference images staged"})
	bus.Publish(domain.ProgressEvent{Step: domain.StepStory, Status: domain.EventCompleted, Progress: 40, Message: "story approved"})

	// Intermediate completed milestones must not end the stream.
	select {
	case <-done:
		t.Fatalf("stream closed on an intermediate milestone, body: %s", rec.Body.String())
	case <-time.After(50 * time.Millisecond):
	}

	bus.Publish(domain.ProgressEvent{Step: domain.StepComplete, Status: domain.EventCompleted, Progress: 100, Message: "generation complete"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after the terminal complete event")
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, frame := range []string{`"step":"init"`, `"step":"upload"`, `"step":"story"`, `"step":"complete"`} {
		if !strings.Contains(body, frame) {
			t.Fatalf("expected %s frame in body, got %s", frame, body)
		}
	}
}

// TestStreamEndpointOnlySeesEventsAfterSubscribe confirms the stream never
// replays anything published to the bus before the subscriber connects.
func TestStreamEndpointOnlySeesEventsAfterSubscribe(t *testing.T) {
	srv := newTestServer(t)
	bus := srv.buses.GetOrCreate("pre-existing")
	bus.Publish(domain.ProgressEvent{Step: domain.StepInit, Status: domain.EventInProgress, Message: "before subscribe"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/generations/pre-existing/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Publish(domain.ProgressEvent{Step: domain.StepUpload, Status: domain.EventCompleted, Message: "after subscribe"})
	bus.Publish(domain.ProgressEvent{Step: domain.StepComplete, Status: domain.EventCompleted, Progress: 100, Message: "generation complete"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after the terminal complete event")
	}

	body := rec.Body.String()
	if strings.Contains(body, "before subscribe") {
		t.Fatalf("expected no replayed pre-subscribe event, got %s", body)
	}
	if !strings.Contains(body, "after subscribe") {
		t.Fatalf("expected the post-subscribe event, got %s", body)
	}
}

// TestStreamEndpointClosesOnFailure confirms a failed status at any step is
// terminal.
func TestStreamEndpointClosesOnFailure(t *testing.T) {
	srv := newTestServer(t)
	bus := srv.buses.GetOrCreate("failing")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/generations/failing/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Publish(domain.ProgressEvent{Step: domain.StepVideos, Status: domain.EventFailed, Message: "all scenes failed synthesis"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after the failure event")
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"status":"failed"`) {
		t.Fatalf("expected failed frame in body, got %s", body)
	}
}
