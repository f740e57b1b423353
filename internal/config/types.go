// Package config loads runtime configuration for the generation pipeline
// from environment variables (optionally via a local .env file), following
// the same env-first, YAML-optional pattern the rest of the stack uses.
package config

// AnthropicPromptCacheConfig controls prompt-cache scoping for the
// Anthropic provider.
type AnthropicPromptCacheConfig struct {
	Enabled       bool
	CacheSystem   bool
	CacheTools    bool
	CacheMessages bool
}

// AnthropicConfig configures the Anthropic provider adapter.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	PromptCache AnthropicPromptCacheConfig
	ExtraParams map[string]any
}

// OpenAIConfig configures the OpenAI provider adapter.
type OpenAIConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	ExtraHeaders map[string]string
	ExtraParams  map[string]any
	LogPayloads  bool
}

// GoogleConfig configures the Google Gemini provider adapter.
type GoogleConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout int
}

// LLMClientConfig selects and configures the active provider. The Provider
// field selects which of OpenAI/Anthropic/Google backs every agent role;
// all nine agent roles share one provider per process.
type LLMClientConfig struct {
	Provider  string // "openai" | "anthropic" | "google"
	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Google    GoogleConfig
}

// ObsConfig configures OpenTelemetry tracing/metrics export.
type ObsConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLP           string
}

// S3SSEConfig configures server-side encryption for objects written to the
// scratch-area bucket.
type S3SSEConfig struct {
	Mode     string // "" | "sse-s3" | "sse-kms"; any other value applies no encryption
	KMSKeyID string
}

// S3Config configures the object store backing reference images, scene
// clips, and final videos.
type S3Config struct {
	Endpoint              string
	Region                string
	Bucket                string
	Prefix                string
	AccessKey             string
	SecretKey             string
	UsePathStyle          bool
	TLSInsecureSkipVerify bool
	SSE                   S3SSEConfig
}

// DatabaseConfig configures the Postgres-backed Generation record store.
type DatabaseConfig struct {
	DSN string
}

// PipelineConfig holds the tunable knobs for the orchestrator's phases,
// named directly after the spec's configuration surface.
type PipelineConfig struct {
	MaxStoryIterations        int
	StoryApprovalThreshold    float64
	MaxSceneIterations        int
	SceneApprovalThreshold    float64
	MaxCohesionIterations     int
	CohesionApprovalThreshold float64

	MaxEnhanceParallelism int
	VideoSynthConcurrency int

	LLMTimeoutSeconds   int
	VideoTimeoutSeconds int

	ScratchBasePath        string
	PerImageSizeCapBytes   int64
	ProgressBusBufferDepth int

	VideoStitcher VideoStitcherConfig
}

// VideoStitcherConfig configures the deterministic composition engine.
type VideoStitcherConfig struct {
	TargetFrameRate       int
	IntroFadeSeconds      float64
	OutroFadeSeconds      float64
	VideoBitrateKbps      int
	FFmpegBinary          string
	FFprobeBinary         string
	CommandTimeoutSeconds int
}

// HTTPConfig configures the bound address for the generation API.
type HTTPConfig struct {
	Addr string
}

// VideoModelConfig configures the external video synthesis provider.
type VideoModelConfig struct {
	BaseURL string
	APIKey  string
}

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	LLMClient  LLMClientConfig
	Obs        ObsConfig
	S3         S3Config
	Database   DatabaseConfig
	Pipeline   PipelineConfig
	HTTP       HTTPConfig
	VideoModel VideoModelConfig

	LogPath     string
	LogLevel    string
	LogPayloads bool
}
