package videosynth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"adreel/internal/apperr"
	"adreel/internal/domain"
	"adreel/internal/llm"
	"adreel/internal/objectstore"
	"adreel/internal/progressbus"
)

type fakeVideoClient struct {
	mu          sync.Mutex
	inFlight    int32
	maxInFlight int32
	fail        map[int]error
}

func (f *fakeVideoClient) Synthesize(ctx context.Context, params domain.VideoPromptParameters) ([]byte, float64, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		cur := atomic.LoadInt32(&f.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&f.maxInFlight, cur, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	err := f.fail[params.SceneNumber]
	f.mu.Unlock()
	if err != nil {
		return nil, 0, err
	}
	return []byte("clip"), 1.5, nil
}

func noRetryPolicy() llm.RetryPolicy {
	return llm.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, BackoffFactor: 1, Retryable: func(error) bool { return false }}
}

func TestRunBoundsConcurrency(t *testing.T) {
	client := &fakeVideoClient{}
	store := objectstore.NewMemoryStore()
	synth := New(client, store, 2, noRetryPolicy(), 0)

	var params []domain.VideoPromptParameters
	for i := 1; i <= 6; i++ {
		params = append(params, domain.NewVideoPromptParameters(i, "prompt", 6, nil))
	}

	results, err := synth.Run(context.Background(), "gen-1/scene_videos", params, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	if client.maxInFlight > 2 {
		t.Fatalf("max in-flight = %d, want <= 2", client.maxInFlight)
	}
	for _, r := range results {
		if r.FilePath == "" {
			t.Fatalf("expected all scenes to succeed: %#v", r)
		}
	}
}

func TestRunTreatsPartialFailureAsSuccess(t *testing.T) {
	client := &fakeVideoClient{fail: map[int]error{2: apperr.New(apperr.UpstreamContentRejected, "videomodel", context.DeadlineExceeded)}}
	store := objectstore.NewMemoryStore()
	synth := New(client, store, 4, noRetryPolicy(), 0)

	params := []domain.VideoPromptParameters{
		domain.NewVideoPromptParameters(1, "p1", 6, nil),
		domain.NewVideoPromptParameters(2, "p2", 6, nil),
		domain.NewVideoPromptParameters(3, "p3", 6, nil),
	}
	results, err := synth.Run(context.Background(), "gen-2/scene_videos", params, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[1].FailureReason == "" {
		t.Fatal("expected scene 2 to be marked failed")
	}
	if results[0].FilePath == "" || results[2].FilePath == "" {
		t.Fatal("expected scenes 1 and 3 to succeed")
	}
}

func TestRunFailsWhenEveryScenefails(t *testing.T) {
	rejected := apperr.New(apperr.UpstreamContentRejected, "videomodel", context.DeadlineExceeded)
	client := &fakeVideoClient{fail: map[int]error{1: rejected, 2: rejected}}
	store := objectstore.NewMemoryStore()
	synth := New(client, store, 4, noRetryPolicy(), 0)

	params := []domain.VideoPromptParameters{
		domain.NewVideoPromptParameters(1, "p1", 6, nil),
		domain.NewVideoPromptParameters(2, "p2", 6, nil),
	}
	_, err := synth.Run(context.Background(), "gen-3/scene_videos", params, nil)
	if err == nil {
		t.Fatal("expected error when every scene fails")
	}
}

// TestRunPublishesNondecreasingProgress pins down Testable Property #3 for
// the videos step: however the scene completions interleave, a subscriber
// sees a nondecreasing progress sequence ending at 95.
func TestRunPublishesNondecreasingProgress(t *testing.T) {
	client := &fakeVideoClient{}
	store := objectstore.NewMemoryStore()
	synth := New(client, store, 4, noRetryPolicy(), 0)

	bus := progressbus.NewRegistry(64).GetOrCreate("gen-4")
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	var params []domain.VideoPromptParameters
	for i := 1; i <= 8; i++ {
		params = append(params, domain.NewVideoPromptParameters(i, "prompt", 6, nil))
	}
	if _, err := synth.Run(context.Background(), "gen-4/scene_videos", params, bus); err != nil {
		t.Fatalf("Run: %v", err)
	}

	last := 0
	seen := 0
	for {
		select {
		case evt := <-events:
			if evt.Kind != domain.StreamEventProgress || evt.Progress.Step != domain.StepVideos {
				continue
			}
			if evt.Progress.Progress < last {
				t.Fatalf("progress decreased: %d after %d", evt.Progress.Progress, last)
			}
			last = evt.Progress.Progress
			seen++
			if seen == len(params) {
				if last != 95 {
					t.Fatalf("final videos progress = %d, want 95", last)
				}
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d progress events", seen)
		}
	}
}
