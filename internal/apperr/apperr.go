// Package apperr defines the error-kind taxonomy shared across the
// generation pipeline. Every failure that can surface from an agent call,
// a video-model call, object storage, or the stitcher is classified into one
// of these kinds so the orchestrator can decide whether to retry, fail the
// generation, or fail a single scene.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry and reporting purposes.
type Kind string

const (
	// InvalidInput means the request itself is malformed (bad prompt, bad
	// reference image, missing required field). Never retried.
	InvalidInput Kind = "invalid_input"
	// TransientNetwork covers dial/timeout/connection-reset style failures
	// against an upstream HTTP dependency. Retried with backoff.
	TransientNetwork Kind = "transient_network"
	// UpstreamRateLimit means the upstream provider returned 429 or an
	// equivalent throttle signal. Retried with the shared exponential
	// backoff; a Retry-After header is not consulted.
	UpstreamRateLimit Kind = "upstream_rate_limit"
	// UpstreamContentRejected means the upstream provider refused the
	// request on content-policy grounds. Never retried as-is.
	UpstreamContentRejected Kind = "upstream_content_rejected"
	// AgentMalformed means an LLM agent produced output that failed
	// structured parsing after all allotted retries.
	AgentMalformed Kind = "agent_malformed"
	// AgentTimeout means an agent or video-model call exceeded its
	// deadline.
	AgentTimeout Kind = "agent_timeout"
	// InternalIO covers local failures: object storage, disk, encoding.
	InternalIO Kind = "internal_io"
	// Cancelled means the caller's context was cancelled (client
	// disconnect, explicit cancellation endpoint).
	Cancelled Kind = "cancelled"
)

// Error wraps an underlying error with a Kind and an optional Stage
// identifying which pipeline component raised it.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s[%s]: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind and stage. Returns nil if err is nil.
func New(kind Kind, stage string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Newf constructs an Error from a format string.
func Newf(kind Kind, stage, format string, args ...any) error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to InternalIO for errors
// that were never classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalIO
}

// StageOf extracts the Stage from err, the empty string if err was never
// classified.
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// Retryable reports whether a failure of this kind is worth retrying under
// the composable retry policy.
func Retryable(kind Kind) bool {
	switch kind {
	case TransientNetwork, UpstreamRateLimit, AgentTimeout:
		return true
	default:
		return false
	}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
