package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"adreel/internal/agentsys"
	"adreel/internal/convrecorder"
	"adreel/internal/domain"
	"adreel/internal/progressbus"
)

// runScenePhase implements Phase 2: Step A's per-scene Writer/Critic loop
// followed by Step B's cohesion pass, per §4.2.
func (o *Orchestrator) runScenePhase(ctx context.Context, in Input, story domain.Story, recorder *convrecorder.Recorder, bus *progressbus.Bus) ([]domain.Scene, domain.CohesionReport, error) {
	count := sceneCount(in.TargetDurationSeconds)
	maxSceneIterations := o.cfg.MaxSceneIterations
	if maxSceneIterations <= 0 {
		maxSceneIterations = 3
	}
	sceneThreshold := o.threshold(o.cfg.SceneApprovalThreshold, 80)

	scenes := make([]domain.Scene, count)
	anyApproved := false

	for n := 1; n <= count; n++ {
		scene, approved, err := o.writeScene(ctx, in, story, scenes[:n-1], n, count, maxSceneIterations, sceneThreshold, "", recorder, bus)
		if err != nil {
			return nil, domain.CohesionReport{}, err
		}
		scenes[n-1] = scene
		anyApproved = anyApproved || approved
	}

	if !anyApproved {
		return nil, domain.CohesionReport{}, fatal("scenes", fmt.Errorf("no scene reached approval across %d scenes", count))
	}

	report, err := o.runCohesionPhase(ctx, in, story, scenes, maxSceneIterations, sceneThreshold, recorder, bus)
	if err != nil {
		return nil, domain.CohesionReport{}, err
	}
	return scenes, report, nil
}

// writeScene runs the per-scene Writer/Critic loop for one scene number,
// given the already-approved content of every prior scene in this
// generation and, when re-entering from the cohesion pass, that pass's
// critique as extra context.
func (o *Orchestrator) writeScene(ctx context.Context, in Input, story domain.Story, priorScenes []domain.Scene, n, count, maxIterations int, threshold float64, extraFeedback string, recorder *convrecorder.Recorder, bus *progressbus.Bus) (domain.Scene, bool, error) {
	writer := agentsys.SceneWriterConfig()
	critic := agentsys.SceneCriticConfig()
	duration := durationForScene(n, count, in.TargetDurationSeconds)

	var best domain.Scene
	bestIteration := 0
	var priorCritique string
	if extraFeedback != "" {
		priorCritique = extraFeedback
	}

	for iter := 1; iter <= maxIterations; iter++ {
		userContent := sceneWriterPrompt(story, priorScenes, n, priorCritique)
		raw, _, err := agentsys.RunAgent(ctx, o.provider, writer, userContent, nil, recorder, bus, domain.InteractionMetadata{Iteration: iter, SceneNumber: n})
		if err != nil {
			return domain.Scene{}, false, fmt.Errorf("scene %d writer iteration %d: %w", n, iter, err)
		}
		if raw == "" {
			continue
		}

		_, parsed, err := agentsys.RunAgent(ctx, o.provider, critic, raw, nil, recorder, bus, domain.InteractionMetadata{Iteration: iter, SceneNumber: n})
		if err != nil {
			return domain.Scene{}, false, fmt.Errorf("scene %d critic iteration %d: %w", n, iter, err)
		}
		cr := parsed.(agentsys.CriticResult)
		score := float64(cr.Score)

		if score > best.Score || (score == best.Score && iter > bestIteration) {
			best = domain.Scene{SceneNumber: n, DurationSeconds: duration, Content: raw, Score: score, Status: sceneStatus(cr.Status)}
			bestIteration = iter
		}

		if score >= threshold {
			best.Status = domain.SceneApproved
			return best, true, nil
		}
		priorCritique = cr.Critique
	}

	return best, best.Status == domain.SceneApproved, nil
}

func sceneStatus(status string) domain.SceneStatus {
	switch status {
	case string(domain.SceneApproved):
		return domain.SceneApproved
	case string(domain.SceneNeedsMinorRevision):
		return domain.SceneNeedsMinorRevision
	default:
		return domain.SceneNeedsRevision
	}
}

func sceneWriterPrompt(story domain.Story, priorScenes []domain.Scene, sceneNumber int, priorCritique string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Full story:\n%s\n\n", story.Content)
	fmt.Fprintf(&b, "Write scene %d.\n\n", sceneNumber)
	if len(priorScenes) > 0 {
		b.WriteString("Previously approved scenes:\n")
		for _, s := range priorScenes {
			fmt.Fprintf(&b, "Scene %d: %s\n\n", s.SceneNumber, s.Content)
		}
	}
	if priorCritique != "" {
		fmt.Fprintf(&b, "Address this feedback:\n%s\n", priorCritique)
	}
	return b.String()
}

// runCohesionPhase implements Step B: up to 2 Cohesor passes, re-submitting
// flagged scenes to the Writer/Critic loop between passes.
func (o *Orchestrator) runCohesionPhase(ctx context.Context, in Input, story domain.Story, scenes []domain.Scene, maxSceneIterations int, sceneThreshold float64, recorder *convrecorder.Recorder, bus *progressbus.Bus) (domain.CohesionReport, error) {
	cohesor := agentsys.SceneCohesorConfig()
	maxCohesionIterations := o.cfg.MaxCohesionIterations
	if maxCohesionIterations <= 0 {
		maxCohesionIterations = 2
	}
	cohesionThreshold := o.threshold(o.cfg.CohesionApprovalThreshold, 75)

	var lastReport domain.CohesionReport

	for iter := 1; iter <= maxCohesionIterations; iter++ {
		userContent := cohesorPrompt(scenes)
		_, parsed, err := agentsys.RunAgent(ctx, o.provider, cohesor, userContent, nil, recorder, bus, domain.InteractionMetadata{Iteration: iter})
		if err != nil {
			return domain.CohesionReport{}, fmt.Errorf("cohesor iteration %d: %w", iter, err)
		}
		report := parsed.(domain.CohesionReport)
		lastReport = report

		if report.OverallCohesionScore >= cohesionThreshold {
			return report, nil
		}
		if iter == maxCohesionIterations {
			break
		}

		for sceneNum, feedback := range report.SceneSpecificFeedback {
			idx := sceneNum - 1
			if idx < 0 || idx >= len(scenes) {
				continue
			}
			revised, _, err := o.writeScene(ctx, in, story, approvedBefore(scenes, idx), sceneNum, len(scenes), maxSceneIterations, sceneThreshold, feedback, recorder, bus)
			if err != nil {
				return domain.CohesionReport{}, err
			}
			scenes[idx] = revised
		}
	}

	return lastReport, nil
}

func approvedBefore(scenes []domain.Scene, idx int) []domain.Scene {
	if idx <= 0 {
		return nil
	}
	return scenes[:idx]
}

func cohesorPrompt(scenes []domain.Scene) string {
	var b strings.Builder
	b.WriteString("Approved scenes in order:\n")
	for _, s := range scenes {
		fmt.Fprintf(&b, "Scene %d: %s\n\n", s.SceneNumber, s.Content)
	}
	return b.String()
}
