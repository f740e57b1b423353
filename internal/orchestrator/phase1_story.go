package orchestrator

import (
	"context"
	"fmt"

	"adreel/internal/agentsys"
	"adreel/internal/convrecorder"
	"adreel/internal/domain"
	"adreel/internal/llm"
	"adreel/internal/progressbus"
)

// runStoryPhase implements Phase 1: a 2-agent Director/Critic loop, early
// termination at score >= 85, floor policy on cap exhaustion (highest
// score; ties broken by the latest iteration).
func (o *Orchestrator) runStoryPhase(ctx context.Context, in Input, maxIterations int, recorder *convrecorder.Recorder, bus *progressbus.Bus) (domain.Story, error) {
	director := agentsys.StoryDirectorConfig()
	critic := agentsys.StoryCriticConfig()

	var best domain.Story
	bestIteration := 0
	var previousDraft, previousCritique string

	images := referenceImages(in.References)

	for k := 1; k <= maxIterations; k++ {
		userContent := storyDirectorPrompt(in, k, previousDraft, previousCritique)
		var draftImages []llm.ImageAttachment
		if k == 1 {
			draftImages = images
		}

		raw, _, err := agentsys.RunAgent(ctx, o.provider, director, userContent, draftImages, recorder, bus, domain.InteractionMetadata{Iteration: k})
		if err != nil {
			return domain.Story{}, fmt.Errorf("story director iteration %d: %w", k, err)
		}
		if raw == "" {
			continue
		}

		_, parsed, err := agentsys.RunAgent(ctx, o.provider, critic, raw, nil, recorder, bus, domain.InteractionMetadata{Iteration: k})
		if err != nil {
			return domain.Story{}, fmt.Errorf("story critic iteration %d: %w", k, err)
		}
		cr := parsed.(agentsys.CriticResult)
		score := float64(cr.Score)

		if score > best.Score || (score == best.Score && k > bestIteration) {
			best = domain.Story{Content: raw, Score: score, Status: storyStatus(cr.Status)}
			bestIteration = k
		}

		if score >= o.threshold(o.cfg.StoryApprovalThreshold, 85) {
			best.Status = domain.StoryApproved
			return best, nil
		}

		previousDraft = raw
		previousCritique = cr.Critique
	}

	if best.Content == "" {
		return domain.Story{}, fatal("story", fmt.Errorf("no usable story draft after %d iterations", maxIterations))
	}
	return best, nil
}

func (o *Orchestrator) threshold(configured, fallback float64) float64 {
	if configured > 0 {
		return configured
	}
	return fallback
}

func storyStatus(status string) domain.StoryStatus {
	switch status {
	case string(domain.StoryApproved):
		return domain.StoryApproved
	case string(domain.StoryRejected):
		return domain.StoryRejected
	default:
		return domain.StoryNeedsRevision
	}
}

func storyDirectorPrompt(in Input, iteration int, previousDraft, previousCritique string) string {
	if iteration == 1 {
		s := fmt.Sprintf("Product prompt: %s\n", in.Prompt)
		if in.BrandName != "" {
			s += fmt.Sprintf("Brand: %s\n", in.BrandName)
		}
		if in.Title != "" {
			s += fmt.Sprintf("Working title: %s\n", in.Title)
		}
		return s
	}
	return fmt.Sprintf("Previous draft:\n%s\n\nCritic feedback:\n%s\n\nRevise the story to address the feedback.", previousDraft, previousCritique)
}

func referenceImages(refs []domain.ReferenceImage) []llm.ImageAttachment {
	if len(refs) == 0 {
		return nil
	}
	out := make([]llm.ImageAttachment, len(refs))
	for i, r := range refs {
		out[i] = llm.ImageAttachment{Data: r.Data, MIMEType: r.MIMEType}
	}
	return out
}
