package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwrapsThroughWrapping(t *testing.T) {
	base := New(TransientNetwork, "videomodel", errors.New("dial timeout"))
	wrapped := fmt.Errorf("scene 2: %w", base)
	if got := KindOf(wrapped); got != TransientNetwork {
		t.Fatalf("KindOf(wrapped) = %v, want %v", got, TransientNetwork)
	}
	if got := StageOf(wrapped); got != "videomodel" {
		t.Fatalf("StageOf(wrapped) = %q, want videomodel", got)
	}
}

func TestKindOfDefaultsToInternalIO(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != InternalIO {
		t.Fatalf("KindOf(plain) = %v, want %v", got, InternalIO)
	}
}

func TestRetryableKinds(t *testing.T) {
	cases := map[Kind]bool{
		TransientNetwork:        true,
		UpstreamRateLimit:       true,
		AgentTimeout:            true,
		UpstreamContentRejected: false,
		InvalidInput:            false,
		AgentMalformed:          false,
		InternalIO:              false,
		Cancelled:               false,
	}
	for kind, want := range cases {
		if got := Retryable(kind); got != want {
			t.Fatalf("Retryable(%v) = %v, want %v", kind, got, want)
		}
	}
}

func TestNewNilPassthrough(t *testing.T) {
	if err := New(InternalIO, "x", nil); err != nil {
		t.Fatalf("New with nil error must return nil, got %v", err)
	}
}
