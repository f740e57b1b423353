// Package persistence stores Generation records and their conversation
// transcripts past the lifetime of the process that produced them.
package persistence

import (
	"context"
	"errors"

	"adreel/internal/domain"
)

// ErrNotFound is returned when a Generation record does not exist.
var ErrNotFound = errors.New("persistence: generation not found")

// GenerationStore persists Generation lifecycle state and its final
// conversation transcript. A Generation is created once, in StatusProcessing,
// and transitions exactly once to a terminal status.
type GenerationStore interface {
	Init(ctx context.Context) error

	Create(ctx context.Context, g domain.Generation) error
	Get(ctx context.Context, id string) (domain.Generation, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Generation, error)

	Complete(ctx context.Context, id string, result domain.Generation) error
	Fail(ctx context.Context, id string, errMsg string) error

	// SaveConversation flushes the full append-only interaction transcript.
	// Called once, when a Generation reaches a terminal status.
	SaveConversation(ctx context.Context, generationID string, interactions []domain.AgentInteraction) error
	Conversation(ctx context.Context, generationID string) ([]domain.AgentInteraction, error)
}
