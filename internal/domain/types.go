// Package domain defines the data model shared by the orchestrator, the
// progress bus, the conversation recorder, and the persistence layer: the
// Generation and everything it owns for the lifetime of a run.
package domain

import "time"

// GenerationStatus is the lifecycle state of a Generation. Terminal states
// (Completed, Failed) are immutable once reached.
type GenerationStatus string

const (
	StatusProcessing GenerationStatus = "processing"
	StatusCompleted  GenerationStatus = "completed"
	StatusFailed     GenerationStatus = "failed"
)

// Generation is the top-level unit of work: a user prompt plus reference
// images, worked through the four pipeline phases into a stitched video.
type Generation struct {
	ID         string
	UserID     string
	Prompt     string
	Title      string
	BrandName  string
	References []ReferenceImage

	MaxStoryIterations int
	GenerateScenes     bool
	GenerateVideos     bool
	TargetDurationSecs int

	Status GenerationStatus

	// Populated on StatusCompleted.
	FinalVideoPath    string
	SceneVideoPaths   []string
	NumScenes         int
	StoryScore        float64
	CohesionScore     float64
	GenerationSeconds float64

	// Populated on StatusFailed.
	ErrorMessage string

	CreatedAt   time.Time
	CompletedAt time.Time
}

// ReferenceImage is an opaque binary blob supplied by the caller. Read-only
// after submission.
type ReferenceImage struct {
	Index       int
	Name        string
	MIMEType    string
	Data        []byte
	ScratchPath string
}

// StoryStatus is the verdict a Story Critic assigns to a draft.
type StoryStatus string

const (
	StoryApproved      StoryStatus = "approved"
	StoryNeedsRevision StoryStatus = "needs_revision"
	StoryRejected      StoryStatus = "rejected"
)

// Story is the Story Director's markdown narrative, scored by the Story
// Critic.
type Story struct {
	Content string
	Score   float64
	Status  StoryStatus
}

// SceneStatus is the verdict a Scene Critic assigns to a scene draft.
type SceneStatus string

const (
	SceneApproved           SceneStatus = "approved"
	SceneNeedsMinorRevision SceneStatus = "needs_minor_revision"
	SceneNeedsRevision      SceneStatus = "needs_revision"
)

// Scene is one member of the ordered sequence derived from a Story.
type Scene struct {
	SceneNumber     int
	DurationSeconds int
	Content         string
	EnhancedContent string
	Score           float64
	Status          SceneStatus
}

// PairwiseTransition is the Cohesor's verdict on one adjacent scene pair.
type PairwiseTransition struct {
	FromScene       int
	ToScene         int
	TransitionScore float64
	Critique        string
}

// CohesionReport is produced once all scenes are drafted.
type CohesionReport struct {
	OverallCohesionScore float64
	Pairwise             []PairwiseTransition
	GlobalIssues         []string
	SceneSpecificFeedback map[int]string
}

// TransitionKind is the deterministic mapping from a pairwise transition
// score to an editing decision. The mapping is total; ties go to the upper
// bucket.
type TransitionKind string

const (
	TransitionCut       TransitionKind = "cut"
	TransitionCrossfade TransitionKind = "crossfade"
	TransitionFade      TransitionKind = "fade"
)

// DeriveTransitionKind implements the score → kind mapping from the
// cohesion pass: >=85 crossfade, [70,85) cut, <70 fade.
func DeriveTransitionKind(score float64) TransitionKind {
	switch {
	case score >= 85:
		return TransitionCrossfade
	case score >= 70:
		return TransitionCut
	default:
		return TransitionFade
	}
}

// Duration returns the fixed clip-overlap duration for a TransitionKind.
func (k TransitionKind) Duration() time.Duration {
	switch k {
	case TransitionCrossfade:
		return 500 * time.Millisecond
	case TransitionFade:
		return 800 * time.Millisecond
	default:
		return 0
	}
}

// InteractionType distinguishes an agent's outbound prompt from its inbound
// response in the Conversation Recorder.
type InteractionType string

const (
	InteractionPrompt   InteractionType = "prompt"
	InteractionResponse InteractionType = "response"
)

// InteractionMetadata is the typed bag of context attached to an
// AgentInteraction.
type InteractionMetadata struct {
	Iteration    int     `json:"iteration,omitempty"`
	SceneNumber  int     `json:"scene_number,omitempty"`
	Score        float64 `json:"score,omitempty"`
	Status       string  `json:"status,omitempty"`
	WordCount    int     `json:"word_count,omitempty"`
	ExpansionPct float64 `json:"expansion_percent,omitempty"`
}

// AgentInteraction is an append-only record of one agent's emitted content.
type AgentInteraction struct {
	AgentName       string              `json:"agent_name"`
	InteractionType InteractionType     `json:"interaction_type"`
	Content         string              `json:"content"`
	Metadata        InteractionMetadata `json:"metadata"`
	Timestamp       time.Time           `json:"timestamp"`
}

// Step is a pipeline milestone reported on the Progress Bus.
type Step string

const (
	StepInit        Step = "init"
	StepUpload      Step = "upload"
	StepStory       Step = "story"
	StepScenes      Step = "scenes"
	StepVideoParams Step = "video_params"
	StepVideos      Step = "videos"
	StepComplete    Step = "complete"
)

// EventStatus is the per-event status accompanying a Step.
type EventStatus string

const (
	EventInProgress EventStatus = "in_progress"
	EventCompleted  EventStatus = "completed"
	EventFailed     EventStatus = "failed"
)

// ProgressEvent is a step-keyed status update published on the Progress Bus.
type ProgressEvent struct {
	Step      Step           `json:"step"`
	Status    EventStatus    `json:"status"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// StreamEventKind discriminates the two event flavors that share one
// Progress Bus channel: lifecycle milestones and per-agent emissions.
type StreamEventKind string

const (
	StreamEventProgress       StreamEventKind = "progress"
	StreamEventLLMInteraction StreamEventKind = "llm_interaction"
)

// StreamEvent is the envelope published on a generation's Progress Bus.
// Exactly one of Progress or Interaction is set, per Kind.
type StreamEvent struct {
	Kind        StreamEventKind   `json:"type"`
	Progress    *ProgressEvent    `json:"-"`
	Interaction *AgentInteraction `json:"-"`
	Timestamp   time.Time         `json:"timestamp"`
}

// SceneVideo is a handle to a synthesized clip, or a failure reason when
// synthesis did not produce one.
type SceneVideo struct {
	SceneNumber   int
	FilePath      string
	Cost          float64
	FailureReason string
}

// VideoPromptParameters is the Phase 3 output handed to the Parallel Video
// Synthesizer, one per scene.
type VideoPromptParameters struct {
	SceneNumber           int
	Prompt                string
	NegativePrompt        string
	DurationSeconds       int
	AspectRatio           string
	Resolution            string
	GenerateAudio         bool
	ReferenceImageHandles []string
	Metadata              map[string]any
}

// FixedNegativePrompt is the constant negative prompt attached to every
// scene's video synthesis request.
const FixedNegativePrompt = "blurry, low quality, distorted, deformed, watermark, text overlay, extra limbs, disfigured, low resolution, compression artifacts"

// NewVideoPromptParameters builds a VideoPromptParameters with the fixed
// aspect ratio, resolution, audio flag, and negative prompt mandated by
// Phase 3.
func NewVideoPromptParameters(sceneNumber int, prompt string, durationSeconds int, refs []string) VideoPromptParameters {
	return VideoPromptParameters{
		SceneNumber:           sceneNumber,
		Prompt:                prompt,
		NegativePrompt:        FixedNegativePrompt,
		DurationSeconds:       durationSeconds,
		AspectRatio:           "16:9",
		Resolution:            "1080p",
		GenerateAudio:         true,
		ReferenceImageHandles: refs,
		Metadata:              map[string]any{},
	}
}
