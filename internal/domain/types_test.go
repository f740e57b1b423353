package domain

import (
	"testing"
	"time"
)

func TestDeriveTransitionKindBuckets(t *testing.T) {
	cases := []struct {
		score float64
		want  TransitionKind
	}{
		{100, TransitionCrossfade},
		{90, TransitionCrossfade},
		{85, TransitionCrossfade}, // tie goes to the upper bucket
		{84.9, TransitionCut},
		{70, TransitionCut},
		{69.9, TransitionFade},
		{0, TransitionFade},
	}
	for _, c := range cases {
		if got := DeriveTransitionKind(c.score); got != c.want {
			t.Fatalf("DeriveTransitionKind(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestTransitionKindDurations(t *testing.T) {
	if d := TransitionCrossfade.Duration(); d != 500*time.Millisecond {
		t.Fatalf("crossfade duration = %v, want 500ms", d)
	}
	if d := TransitionFade.Duration(); d != 800*time.Millisecond {
		t.Fatalf("fade duration = %v, want 800ms", d)
	}
	if d := TransitionCut.Duration(); d != 0 {
		t.Fatalf("cut duration = %v, want 0", d)
	}
}

func TestNewVideoPromptParametersFixedFields(t *testing.T) {
	p := NewVideoPromptParameters(2, "a prompt", 6, []string{"ref1"})
	if p.AspectRatio != "16:9" || p.Resolution != "1080p" || !p.GenerateAudio {
		t.Fatalf("fixed fields wrong: %+v", p)
	}
	if p.NegativePrompt != FixedNegativePrompt {
		t.Fatalf("negative prompt not fixed")
	}
	if p.SceneNumber != 2 || p.DurationSeconds != 6 {
		t.Fatalf("scene fields wrong: %+v", p)
	}
}
