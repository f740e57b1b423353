// Package orchestrator sequences the four pipeline phases — story
// generation, scene generation, enhancement/alignment/sanitization, and
// parallel synthesis plus stitching — described by §4.2, over the nine
// agent roles in internal/agentsys.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"time"

	"adreel/internal/apperr"
	"adreel/internal/config"
	"adreel/internal/convrecorder"
	"adreel/internal/domain"
	"adreel/internal/llm"
	"adreel/internal/progressbus"
	"adreel/internal/stitcher"
	"adreel/internal/videosynth"
)

// Orchestrator owns one provider, one synthesizer, and one stitcher, and
// drives every generation submitted to it through all four phases.
type Orchestrator struct {
	provider llm.Provider
	synth    *videosynth.Synthesizer
	stitch   *stitcher.Stitcher
	cfg      config.PipelineConfig
}

// New builds an Orchestrator. The given provider is wrapped with the
// configured per-call deadline and the default retry policy so every agent
// call retries transient network, timeout, and rate-limit failures with
// backoff, per §5/§7.
func New(provider llm.Provider, synth *videosynth.Synthesizer, stitch *stitcher.Stitcher, cfg config.PipelineConfig) *Orchestrator {
	if cfg.LLMTimeoutSeconds > 0 {
		provider = llm.NewDeadlineProvider(provider, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)
	}
	return &Orchestrator{
		provider: llm.NewRetryingProvider(provider, llm.DefaultRetryPolicy()),
		synth:    synth,
		stitch:   stitch,
		cfg:      cfg,
	}
}

// Input is everything the Orchestrator needs for one generation run.
type Input struct {
	GenerationID          string
	Prompt                string
	Title                 string
	BrandName             string
	References            []domain.ReferenceImage
	MaxStoryIterations    int
	GenerateScenes        bool
	GenerateVideos        bool
	TargetDurationSeconds int

	// ScenePathPrefix and FinalVideoKey are object-store key prefixes the
	// Coordinator has already derived from the scratch-area layout (§6.4).
	ScenePathPrefix string
	FinalVideoKey   string
}

// Output is the Coordinator-facing result of a successful run.
type Output struct {
	FinalVideoPath    string
	SceneVideoPaths   []string
	NumScenes         int
	StoryScore        float64
	CohesionScore     float64
	GenerationSeconds float64
}

// Run drives a generation through all four phases. Phase 1/2/3 failures are
// fatal; Phase 4 tolerates partial scene failure as long as one clip
// synthesizes, per §4.2's failure semantics.
func (o *Orchestrator) Run(ctx context.Context, in Input, recorder *convrecorder.Recorder, bus *progressbus.Bus) (Output, error) {
	start := time.Now()

	maxStory := in.MaxStoryIterations
	if maxStory <= 0 {
		maxStory = o.cfg.MaxStoryIterations
	}

	publish(bus, domain.StepStory, domain.EventInProgress, 10, "story: starting")
	story, err := o.runStoryPhase(ctx, in, maxStory, recorder, bus)
	if err != nil {
		return Output{}, err
	}
	publish(bus, domain.StepStory, domain.EventCompleted, 40, fmt.Sprintf("story approved (score %.0f)", story.Score))

	if !in.GenerateScenes {
		out := Output{StoryScore: story.Score, GenerationSeconds: time.Since(start).Seconds()}
		publishComplete(bus, out)
		return out, nil
	}

	publish(bus, domain.StepScenes, domain.EventInProgress, 40, "scenes: starting")
	scenes, report, err := o.runScenePhase(ctx, in, story, recorder, bus)
	if err != nil {
		return Output{}, err
	}
	publish(bus, domain.StepScenes, domain.EventCompleted, 65, fmt.Sprintf("scenes approved, cohesion %.0f", report.OverallCohesionScore))

	publish(bus, domain.StepVideoParams, domain.EventInProgress, 65, "video_params: enhancing")
	params, err := o.runEnhancementPhase(ctx, in, scenes, recorder, bus)
	if err != nil {
		return Output{}, err
	}
	publish(bus, domain.StepVideoParams, domain.EventCompleted, 70, "video_params: ready")

	out := Output{StoryScore: story.Score, CohesionScore: report.OverallCohesionScore}
	if !in.GenerateVideos {
		out.GenerationSeconds = time.Since(start).Seconds()
		publishComplete(bus, out)
		return out, nil
	}

	videos, err := o.synth.Run(ctx, in.ScenePathPrefix, params, bus)
	if err != nil {
		return Output{}, err
	}

	var survivingPaths []string
	for _, v := range videos {
		if v.FilePath != "" {
			survivingPaths = append(survivingPaths, v.FilePath)
		}
	}

	finalPath, err := o.stitch.Stitch(ctx, in.GenerationID, videos, report.Pairwise, in.FinalVideoKey)
	if err != nil {
		return Output{}, err
	}

	out.FinalVideoPath = finalPath
	out.SceneVideoPaths = survivingPaths
	out.NumScenes = len(survivingPaths)
	out.GenerationSeconds = time.Since(start).Seconds()

	publishComplete(bus, out)
	return out, nil
}

// publishComplete emits the terminal completion event of §6.2 with its data
// payload. Every success path must pass through here: the streaming channel
// only closes on this event (or a failure).
func publishComplete(bus *progressbus.Bus, out Output) {
	publishData(bus, domain.StepComplete, domain.EventCompleted, 100, "generation complete", map[string]any{
		"final_video_path": out.FinalVideoPath,
		"scene_videos":     out.SceneVideoPaths,
		"num_scenes":       out.NumScenes,
		"story_score":      out.StoryScore,
		"cohesion_score":   out.CohesionScore,
	})
}

func publish(bus *progressbus.Bus, step domain.Step, status domain.EventStatus, progress int, message string) {
	publishData(bus, step, status, progress, message, nil)
}

func publishData(bus *progressbus.Bus, step domain.Step, status domain.EventStatus, progress int, message string, data map[string]any) {
	if bus == nil {
		return
	}
	bus.Publish(domain.ProgressEvent{
		Step:      step,
		Status:    status,
		Progress:  progress,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// sceneCount derives the target scene count from the requested duration,
// per §6.1: ceil(target/8), clamped to [3,8].
func sceneCount(targetDurationSeconds int) int {
	if targetDurationSeconds <= 0 {
		targetDurationSeconds = 30
	}
	n := (targetDurationSeconds + 7) / 8
	if n < 3 {
		n = 3
	}
	if n > 8 {
		n = 8
	}
	return n
}

// durationForScene spreads the target duration evenly across the scene
// count, then quantizes each scene's share to the nearest duration a scene
// is actually allowed to have, per §3: {4, 6, 8} seconds.
func durationForScene(sceneNumber, count, targetDurationSeconds int) int {
	if targetDurationSeconds <= 0 {
		targetDurationSeconds = 30
	}
	if count <= 0 {
		count = 1
	}
	share := float64(targetDurationSeconds) / float64(count)
	return quantizeSceneDuration(share)
}

// allowedSceneDurations is the total, deterministic set a Scene's
// duration_seconds may take, per §3.
var allowedSceneDurations = [3]int{4, 6, 8}

// quantizeSceneDuration snaps a continuous seconds value to the nearest
// entry in allowedSceneDurations, ties going to the lower value.
func quantizeSceneDuration(seconds float64) int {
	best := allowedSceneDurations[0]
	bestDiff := math.Abs(seconds - float64(best))
	for _, v := range allowedSceneDurations[1:] {
		diff := math.Abs(seconds - float64(v))
		if diff < bestDiff {
			best = v
			bestDiff = diff
		}
	}
	return best
}

func fatal(stage string, err error) error {
	return apperr.New(apperr.AgentMalformed, stage, err)
}
