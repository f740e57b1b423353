package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"adreel/internal/domain"
)

// NewPostgresGenerationStore returns a Postgres-backed GenerationStore.
func NewPostgresGenerationStore(pool *pgxpool.Pool) GenerationStore {
	return &pgGenerationStore{pool: pool}
}

type pgGenerationStore struct {
	pool *pgxpool.Pool
}

func (s *pgGenerationStore) Init(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres generation store requires pool")
	}
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    prompt TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    brand_name TEXT NOT NULL DEFAULT '',
    max_story_iterations INTEGER NOT NULL DEFAULT 3,
    generate_scenes BOOLEAN NOT NULL DEFAULT TRUE,
    generate_videos BOOLEAN NOT NULL DEFAULT TRUE,
    target_duration_secs INTEGER NOT NULL DEFAULT 30,
    status TEXT NOT NULL,
    final_video_path TEXT NOT NULL DEFAULT '',
    scene_video_paths JSONB NOT NULL DEFAULT '[]',
    num_scenes INTEGER NOT NULL DEFAULT 0,
    story_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    cohesion_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    generation_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS generations_user_created_idx ON generations(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS generation_interactions (
    id BIGSERIAL PRIMARY KEY,
    generation_id TEXT NOT NULL REFERENCES generations(id) ON DELETE CASCADE,
    agent_name TEXT NOT NULL,
    interaction_type TEXT NOT NULL,
    content TEXT NOT NULL,
    metadata JSONB NOT NULL DEFAULT '{}',
    occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS generation_interactions_gen_idx ON generation_interactions(generation_id, occurred_at);
`)
	return err
}

func (s *pgGenerationStore) Create(ctx context.Context, g domain.Generation) error {
	paths, err := json.Marshal(g.SceneVideoPaths)
	if err != nil {
		return fmt.Errorf("marshal scene video paths: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO generations (id, user_id, prompt, title, brand_name, max_story_iterations, generate_scenes, generate_videos,
                          target_duration_secs, status, scene_video_paths, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		g.ID, g.UserID, g.Prompt, g.Title, g.BrandName, g.MaxStoryIterations, g.GenerateScenes, g.GenerateVideos,
		g.TargetDurationSecs, g.Status, paths, g.CreatedAt)
	return err
}

func (s *pgGenerationStore) Get(ctx context.Context, id string) (domain.Generation, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, user_id, prompt, title, brand_name, max_story_iterations, generate_scenes, generate_videos,
       target_duration_secs, status, final_video_path, scene_video_paths, num_scenes, story_score,
       cohesion_score, generation_seconds, error_message, created_at, completed_at
FROM generations WHERE id = $1`, id)
	return scanGeneration(row)
}

func (s *pgGenerationStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Generation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, prompt, title, brand_name, max_story_iterations, generate_scenes, generate_videos,
       target_duration_secs, status, final_video_path, scene_video_paths, num_scenes, story_score,
       cohesion_score, generation_seconds, error_message, created_at, completed_at
FROM generations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *pgGenerationStore) Complete(ctx context.Context, id string, result domain.Generation) error {
	paths, err := json.Marshal(result.SceneVideoPaths)
	if err != nil {
		return fmt.Errorf("marshal scene video paths: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE generations SET status=$2, final_video_path=$3, scene_video_paths=$4, num_scenes=$5, story_score=$6,
    cohesion_score=$7, generation_seconds=$8, completed_at=$9
WHERE id=$1`,
		id, domain.StatusCompleted, result.FinalVideoPath, paths, result.NumScenes, result.StoryScore,
		result.CohesionScore, result.GenerationSeconds, result.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgGenerationStore) Fail(ctx context.Context, id string, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE generations SET status=$2, error_message=$3, completed_at=NOW() WHERE id=$1`,
		id, domain.StatusFailed, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgGenerationStore) SaveConversation(ctx context.Context, generationID string, interactions []domain.AgentInteraction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, in := range interactions {
		meta, err := json.Marshal(in.Metadata)
		if err != nil {
			return fmt.Errorf("marshal interaction metadata: %w", err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO generation_interactions (generation_id, agent_name, interaction_type, content, metadata, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
			generationID, in.AgentName, in.InteractionType, in.Content, meta, in.Timestamp); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *pgGenerationStore) Conversation(ctx context.Context, generationID string) ([]domain.AgentInteraction, error) {
	rows, err := s.pool.Query(ctx, `
SELECT agent_name, interaction_type, content, metadata, occurred_at
FROM generation_interactions WHERE generation_id = $1 ORDER BY occurred_at`, generationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AgentInteraction
	for rows.Next() {
		var in domain.AgentInteraction
		var meta []byte
		if err := rows.Scan(&in.AgentName, &in.InteractionType, &in.Content, &meta, &in.Timestamp); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &in.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal interaction metadata: %w", err)
			}
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (domain.Generation, error) {
	var g domain.Generation
	var paths []byte
	var completedAt *time.Time

	err := row.Scan(&g.ID, &g.UserID, &g.Prompt, &g.Title, &g.BrandName, &g.MaxStoryIterations, &g.GenerateScenes,
		&g.GenerateVideos, &g.TargetDurationSecs, &g.Status, &g.FinalVideoPath, &paths, &g.NumScenes, &g.StoryScore,
		&g.CohesionScore, &g.GenerationSeconds, &g.ErrorMessage, &g.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Generation{}, ErrNotFound
		}
		return domain.Generation{}, err
	}
	if completedAt != nil {
		g.CompletedAt = *completedAt
	}
	if len(paths) > 0 {
		if err := json.Unmarshal(paths, &g.SceneVideoPaths); err != nil {
			return domain.Generation{}, fmt.Errorf("unmarshal scene video paths: %w", err)
		}
	}
	return g, nil
}
