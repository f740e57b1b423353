// Package videosynth runs the Parallel Video Synthesizer: bounded-
// concurrency fan-out over scene video prompts, per-scene retry, and
// partial-failure tolerance.
package videosynth

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"adreel/internal/apperr"
	"adreel/internal/domain"
	"adreel/internal/llm"
	"adreel/internal/objectstore"
	"adreel/internal/progressbus"
)

// VideoClient is the external video model abstraction the synthesizer
// drives; satisfied by videomodel.Client.
type VideoClient interface {
	Synthesize(ctx context.Context, params domain.VideoPromptParameters) ([]byte, float64, error)
}

// Synthesizer bounds concurrent external calls to K and applies the
// shared retry policy and per-call deadline to each.
type Synthesizer struct {
	client      VideoClient
	store       objectstore.ObjectStore
	concurrency int
	retry       llm.RetryPolicy
	timeout     time.Duration
}

// New builds a Synthesizer. concurrency <= 0 defaults to 4, the value
// named in §4.5. timeout <= 0 disables the per-call deadline.
func New(client VideoClient, store objectstore.ObjectStore, concurrency int, retry llm.RetryPolicy, timeout time.Duration) *Synthesizer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Synthesizer{client: client, store: store, concurrency: concurrency, retry: retry, timeout: timeout}
}

// Run synthesizes every scene's clip, storing successes at
// scenePathPrefix/scene_{NN}.mp4 and preserving input order in the result.
// Errors propagate only when every scene fails; individual scene failures
// are recorded in SceneVideo.FailureReason.
func (s *Synthesizer) Run(ctx context.Context, scenePathPrefix string, params []domain.VideoPromptParameters, bus *progressbus.Bus) ([]domain.SceneVideo, error) {
	results := make([]domain.SceneVideo, len(params))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	progress := &videoProgress{bus: bus, total: len(params)}

	for i, p := range params {
		i, p := i, p
		g.Go(func() error {
			sv := domain.SceneVideo{SceneNumber: p.SceneNumber}

			var data []byte
			var cost float64
			err := s.retry.Do(gctx, func(attempt int) error {
				callCtx := gctx
				if s.timeout > 0 {
					var cancel context.CancelFunc
					callCtx, cancel = context.WithTimeout(gctx, s.timeout)
					defer cancel()
				}
				var callErr error
				data, cost, callErr = s.client.Synthesize(callCtx, p)
				return callErr
			})
			if err != nil {
				sv.FailureReason = err.Error()
				results[i] = sv
				progress.publish(fmt.Sprintf("scene %d synthesis failed", p.SceneNumber))
				return nil // partial failure: do not abort the group
			}

			key := fmt.Sprintf("%s/scene_%02d.mp4", scenePathPrefix, p.SceneNumber)
			if _, err := s.store.Put(gctx, key, bytes.NewReader(data), objectstore.PutOptions{ContentType: "video/mp4"}); err != nil {
				sv.FailureReason = apperr.New(apperr.InternalIO, "videosynth", err).Error()
				results[i] = sv
				progress.publish(fmt.Sprintf("scene %d failed to persist clip", p.SceneNumber))
				return nil
			}

			sv.FilePath = key
			sv.Cost = cost
			results[i] = sv
			progress.publish(fmt.Sprintf("scene %d synthesized", p.SceneNumber))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !anySucceeded(results) {
		return results, apperr.New(apperr.UpstreamContentRejected, "videosynth", fmt.Errorf("all %d scenes failed synthesis", len(results)))
	}
	return results, nil
}

func anySucceeded(results []domain.SceneVideo) bool {
	for _, r := range results {
		if r.FilePath != "" {
			return true
		}
	}
	return false
}

// videoProgress emits progress events linearly across 70%-95%, per §4.5,
// as scenes complete in whatever order they finish. The mutex covers both
// the completion count and the publish so the sequence a subscriber sees
// is nondecreasing even when two scenes finish at the same instant.
type videoProgress struct {
	mu        sync.Mutex
	bus       *progressbus.Bus
	completed int
	total     int
}

func (p *videoProgress) publish(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	if p.bus == nil || p.total == 0 {
		return
	}
	frac := float64(p.completed) / float64(p.total)
	progress := 70 + int(frac*25)
	p.bus.Publish(domain.ProgressEvent{
		Step:      domain.StepVideos,
		Status:    domain.EventInProgress,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now(),
	})
}
