// Package convrecorder accumulates every agent prompt/response pair for one
// generation in memory and flushes the full transcript to persistent
// storage exactly once, when the generation reaches a terminal state.
package convrecorder

import (
	"context"
	"sync"
	"time"

	"adreel/internal/domain"
	"adreel/internal/persistence"
)

// Recorder is append-only for the lifetime of a single generation run.
type Recorder struct {
	mu           sync.Mutex
	generationID string
	interactions []domain.AgentInteraction
}

// New starts a fresh recorder for a generation.
func New(generationID string) *Recorder {
	return &Recorder{generationID: generationID}
}

// RecordPrompt appends an outbound prompt sent to an agent.
func (r *Recorder) RecordPrompt(agentName, content string, meta domain.InteractionMetadata) {
	r.record(agentName, domain.InteractionPrompt, content, meta)
}

// RecordResponse appends an inbound response from an agent.
func (r *Recorder) RecordResponse(agentName, content string, meta domain.InteractionMetadata) {
	r.record(agentName, domain.InteractionResponse, content, meta)
}

func (r *Recorder) record(agentName string, kind domain.InteractionType, content string, meta domain.InteractionMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interactions = append(r.interactions, domain.AgentInteraction{
		AgentName:       agentName,
		InteractionType: kind,
		Content:         content,
		Metadata:        meta,
		Timestamp:       time.Now(),
	})
}

// Snapshot returns a copy of the transcript recorded so far.
func (r *Recorder) Snapshot() []domain.AgentInteraction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AgentInteraction, len(r.interactions))
	copy(out, r.interactions)
	return out
}

// Flush persists the full transcript. Call exactly once, when the
// generation reaches StatusCompleted or StatusFailed.
func (r *Recorder) Flush(ctx context.Context, store persistence.GenerationStore) error {
	return store.SaveConversation(ctx, r.generationID, r.Snapshot())
}
