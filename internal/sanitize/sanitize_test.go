package sanitize

import (
	"strings"
	"testing"
)

func TestSanitizeStripsAgeAndBodyDescriptors(t *testing.T) {
	text := "A young woman with an athletic build walks through a sunlit orchard, wearing a white linen dress."
	result := Sanitize(1, text)

	if result.CharsRemoved <= 0 {
		t.Fatalf("expected characters to be removed, got before=%d after=%d", result.BeforeChars, result.AfterChars)
	}
	lower := strings.ToLower(result.SanitizedText)
	if strings.Contains(lower, "young woman") {
		t.Fatalf("expected age token to be stripped: %q", result.SanitizedText)
	}
	if strings.Contains(lower, "athletic build") {
		t.Fatalf("expected body descriptor to be stripped: %q", result.SanitizedText)
	}
	if !strings.Contains(lower, "sunlit orchard") {
		t.Fatalf("expected environment detail to survive: %q", result.SanitizedText)
	}
}

func TestSanitizePreservesExactSameContinuity(t *testing.T) {
	text := "The exact same young woman from Scene 1 raises the perfume bottle to the light."
	result := Sanitize(2, text)

	if !strings.Contains(strings.ToLower(result.SanitizedText), "the exact same") {
		t.Fatalf("expected continuity sentence to be preserved verbatim: %q", result.SanitizedText)
	}
}

func TestSanitizeNoOpOnCleanText(t *testing.T) {
	text := "The camera pans slowly across a marble countertop as golden light catches the glass bottle."
	result := Sanitize(3, text)
	if result.CharsRemoved != 0 {
		t.Fatalf("expected no removal for text with no flagged tokens, removed=%d", result.CharsRemoved)
	}
}
