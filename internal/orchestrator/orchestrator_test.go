package orchestrator

import (
	"context"
	"strings"
	"testing"

	"adreel/internal/config"
	"adreel/internal/convrecorder"
	"adreel/internal/llm"
)

// roleScriptedProvider dispatches a canned response by matching a
// distinctive substring of the role's fixed system prompt, so concurrent
// calls (Phase 3 enhancement fan-out) never race on a shared call counter.
type roleScriptedProvider struct {
	storyDirector string
	storyCritic   string
	sceneWriter   string
	sceneCritic   string
	cohesor       string
	enhancer      string
	aligner       string
}

func (p *roleScriptedProvider) Chat(ctx context.Context, msgs []llm.Message, params llm.SamplingParams) (llm.Message, error) {
	sys := msgs[0].Content
	switch {
	case strings.Contains(sys, "Story Director"):
		return llm.Message{Role: "assistant", Content: p.storyDirector}, nil
	case strings.Contains(sys, "Story Critic"):
		return llm.Message{Role: "assistant", Content: p.storyCritic}, nil
	case strings.Contains(sys, "Scene Writer"):
		return llm.Message{Role: "assistant", Content: p.sceneWriter}, nil
	case strings.Contains(sys, "Scene Critic"):
		return llm.Message{Role: "assistant", Content: p.sceneCritic}, nil
	case strings.Contains(sys, "Scene Cohesor"):
		return llm.Message{Role: "assistant", Content: p.cohesor}, nil
	case strings.Contains(sys, "Scene Enhancer"):
		return llm.Message{Role: "assistant", Content: p.enhancer}, nil
	case strings.Contains(sys, "Scene Aligner"):
		return llm.Message{Role: "assistant", Content: p.aligner}, nil
	default:
		return llm.Message{}, nil
	}
}

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MaxStoryIterations:        3,
		StoryApprovalThreshold:    85,
		MaxSceneIterations:        3,
		SceneApprovalThreshold:    80,
		MaxCohesionIterations:     2,
		CohesionApprovalThreshold: 75,
		MaxEnhanceParallelism:     4,
	}
}

func TestRunApprovesOnFirstIterationAndStopsBeforeSynthesis(t *testing.T) {
	t.Parallel()

	provider := &roleScriptedProvider{
		storyDirector: "A heartwarming story about a watch that marks every milestone.",
		storyCritic:   `{"score": 90, "status": "approved", "critique": "strong arc", "strengths": ["pacing"], "improvements": [], "priority_fixes": []}`,
		sceneWriter:   "A sunrise shot of the watch on a wrist, camera panning slowly across the dial.",
		sceneCritic:   `{"score": 85, "status": "approved", "critique": "vivid", "strengths": [], "improvements": [], "priority_fixes": []}`,
		cohesor:       `{"overall_cohesion_score": 90, "pairwise": [{"from_scene":1,"to_scene":2,"transition_score":88,"critique":"smooth"}], "global_issues": [], "scene_specific": {}}`,
		enhancer:      "A sunrise shot of the watch on a wrist, camera panning slowly across the dial, golden hour lens flare, shallow depth of field, 35mm anamorphic, unhurried pacing.",
		aligner:       `["scene one aligned", "scene two aligned", "scene three aligned", "scene four aligned"]`,
	}

	o := New(provider, nil, nil, testConfig())
	recorder := convrecorder.New("gen-test")

	out, err := o.Run(context.Background(), Input{
		GenerationID:          "gen-test",
		Prompt:                "Luxury watch ad, aspirational morning routine",
		TargetDurationSeconds: 30,
		GenerateScenes:        true,
		GenerateVideos:        false,
	}, recorder, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.StoryScore != 90 {
		t.Fatalf("story score = %v, want 90", out.StoryScore)
	}
	if out.CohesionScore != 90 {
		t.Fatalf("cohesion score = %v, want 90", out.CohesionScore)
	}
	if len(recorder.Snapshot()) == 0 {
		t.Fatal("expected recorded interactions")
	}
}

func TestSceneCountDerivation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		target int
		want   int
	}{
		{0, 4}, {15, 3}, {30, 4}, {45, 6}, {60, 8}, {1000, 8},
	}
	for _, tc := range cases {
		if got := sceneCount(tc.target); got != tc.want {
			t.Fatalf("sceneCount(%d) = %d, want %d", tc.target, got, tc.want)
		}
	}
}

// TestDurationForSceneStaysInAllowedSet pins down §3: Scene.duration_seconds
// must always land in {4, 6, 8}, never an arbitrary remainder value.
func TestDurationForSceneStaysInAllowedSet(t *testing.T) {
	t.Parallel()
	allowed := map[int]bool{4: true, 6: true, 8: true}
	for _, target := range []int{15, 30, 45, 60} {
		count := sceneCount(target)
		for n := 1; n <= count; n++ {
			got := durationForScene(n, count, target)
			if !allowed[got] {
				t.Fatalf("durationForScene(%d, %d, %d) = %d, want one of {4,6,8}", n, count, target, got)
			}
		}
	}
}
