package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"adreel/internal/agentsys"
	"adreel/internal/convrecorder"
	"adreel/internal/domain"
	"adreel/internal/observability"
	"adreel/internal/progressbus"
	"adreel/internal/sanitize"
)

// runEnhancementPhase implements Phase 3's three deterministic-by-prompt
// passes, run exactly once: parallel per-scene enhancement, a single
// sequential alignment call, and a local sanitization pass with no LLM
// call, per §4.2.
func (o *Orchestrator) runEnhancementPhase(ctx context.Context, in Input, scenes []domain.Scene, recorder *convrecorder.Recorder, bus *progressbus.Bus) ([]domain.VideoPromptParameters, error) {
	enhanced, err := o.enhanceScenes(ctx, scenes, recorder, bus)
	if err != nil {
		return nil, err
	}

	aligned, err := o.alignScenes(ctx, enhanced, recorder, bus)
	if err != nil {
		return nil, err
	}
	for i := range scenes {
		scenes[i].EnhancedContent = aligned[i]
	}

	params := o.sanitizeScenes(scenes, aligned, in)
	if params == nil {
		return nil, fatal("sanitize", fmt.Errorf("every scene sanitized to an empty prompt"))
	}
	return params, nil
}

// enhanceScenes fans out one LLM call per scene, bounded by
// MaxEnhanceParallelism, per the Open Questions decision in §9.
func (o *Orchestrator) enhanceScenes(ctx context.Context, scenes []domain.Scene, recorder *convrecorder.Recorder, bus *progressbus.Bus) ([]string, error) {
	enhancer := agentsys.SceneEnhancerConfig()
	limit := o.cfg.MaxEnhanceParallelism
	if limit <= 0 {
		limit = 4
	}

	out := make([]string, len(scenes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, scene := range scenes {
		i, scene := i, scene
		g.Go(func() error {
			raw, _, err := agentsys.RunAgent(gctx, o.provider, enhancer, scene.Content, nil, recorder, bus, domain.InteractionMetadata{SceneNumber: scene.SceneNumber})
			if err != nil {
				return fmt.Errorf("scene %d enhancer: %w", scene.SceneNumber, err)
			}
			logEnhancementExpansion(scene, raw)
			out[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func logEnhancementExpansion(scene domain.Scene, enhanced string) {
	before := len([]rune(scene.Content))
	after := len([]rune(enhanced))
	pct := 0.0
	if before > 0 {
		pct = (float64(after) - float64(before)) / float64(before) * 100
	}
	log := observability.LoggerWithTrace(context.Background())
	if after < before {
		log.Warn().Int("scene", scene.SceneNumber).Int("before", before).Int("after", after).Msg("scene_enhancer_shrunk_content")
		return
	}
	log.Debug().Int("scene", scene.SceneNumber).Float64("expansion_percent", pct).Msg("scene_enhancer_expanded")
}

// alignScenes makes the single sequential Aligner call over the full
// enhanced-scene array, per §4.2 Step 2.
func (o *Orchestrator) alignScenes(ctx context.Context, enhanced []string, recorder *convrecorder.Recorder, bus *progressbus.Bus) ([]string, error) {
	aligner := agentsys.SceneAlignerConfig()
	var b strings.Builder
	for i, e := range enhanced {
		fmt.Fprintf(&b, "Scene %d:\n%s\n\n", i+1, e)
	}

	_, parsed, err := agentsys.RunAgent(ctx, o.provider, aligner, b.String(), nil, recorder, bus, domain.InteractionMetadata{})
	if err != nil {
		return nil, fmt.Errorf("scene aligner: %w", err)
	}
	aligned, ok := parsed.([]string)
	if !ok || len(aligned) != len(enhanced) {
		return nil, fatal("scenes_align", fmt.Errorf("aligner returned %d entries, want %d", len(aligned), len(enhanced)))
	}
	return aligned, nil
}

// sanitizeScenes runs the pure local Appearance Sanitizer over every
// aligned prompt and assembles the final VideoPromptParameters, per §4.2
// Step 3.
func (o *Orchestrator) sanitizeScenes(scenes []domain.Scene, aligned []string, in Input) []domain.VideoPromptParameters {
	handles := referenceHandles(in.References)
	params := make([]domain.VideoPromptParameters, 0, len(scenes))
	anyNonEmpty := false

	for i, scene := range scenes {
		result := sanitize.Sanitize(scene.SceneNumber, aligned[i])
		if strings.TrimSpace(result.SanitizedText) != "" {
			anyNonEmpty = true
		}
		p := domain.NewVideoPromptParameters(scene.SceneNumber, result.SanitizedText, scene.DurationSeconds, handles)
		p.Metadata["chars_before"] = result.BeforeChars
		p.Metadata["chars_after"] = result.AfterChars
		p.Metadata["chars_removed"] = result.CharsRemoved
		params = append(params, p)
	}

	if !anyNonEmpty {
		return nil
	}
	return params
}

func referenceHandles(refs []domain.ReferenceImage) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ScratchPath
	}
	return out
}
