package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables, overlaying a local
// .env file when present (Overload so repository-local values win over a
// pre-existing shell environment, matching the rest of the stack).
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		LLMClient: LLMClientConfig{
			Provider: firstNonEmpty(os.Getenv("LLM_PROVIDER"), "anthropic"),
			Anthropic: AnthropicConfig{
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				Model:   firstNonEmpty(os.Getenv("ANTHROPIC_MODEL"), "claude-sonnet-4-5"),
				BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
				PromptCache: AnthropicPromptCacheConfig{
					Enabled:       envBool("ANTHROPIC_PROMPT_CACHE_ENABLED", true),
					CacheSystem:   envBool("ANTHROPIC_PROMPT_CACHE_SYSTEM", true),
					CacheMessages: envBool("ANTHROPIC_PROMPT_CACHE_MESSAGES", false),
				},
			},
			OpenAI: OpenAIConfig{
				APIKey:      os.Getenv("OPENAI_API_KEY"),
				Model:       firstNonEmpty(os.Getenv("OPENAI_MODEL"), "gpt-4o"),
				BaseURL:     os.Getenv("OPENAI_BASE_URL"),
				LogPayloads: envBool("OPENAI_LOG_PAYLOADS", false),
			},
			Google: GoogleConfig{
				APIKey:  os.Getenv("GOOGLE_API_KEY"),
				Model:   firstNonEmpty(os.Getenv("GOOGLE_MODEL"), "gemini-2.5-flash"),
				BaseURL: os.Getenv("GOOGLE_BASE_URL"),
				Timeout: envInt("GOOGLE_TIMEOUT_SECONDS", 120),
			},
		},
		Obs: ObsConfig{
			ServiceName:    firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), "adreeld"),
			ServiceVersion: firstNonEmpty(os.Getenv("OTEL_SERVICE_VERSION"), "dev"),
			Environment:    firstNonEmpty(os.Getenv("ENVIRONMENT"), "development"),
			OTLP:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
		S3: S3Config{
			Endpoint:              os.Getenv("S3_ENDPOINT"),
			Region:                firstNonEmpty(os.Getenv("S3_REGION"), "us-east-1"),
			Bucket:                firstNonEmpty(os.Getenv("S3_BUCKET"), "adreel-generations"),
			Prefix:                os.Getenv("S3_PREFIX"),
			AccessKey:             os.Getenv("S3_ACCESS_KEY"),
			SecretKey:             os.Getenv("S3_SECRET_KEY"),
			UsePathStyle:          envBool("S3_USE_PATH_STYLE", false),
			TLSInsecureSkipVerify: envBool("S3_TLS_INSECURE_SKIP_VERIFY", false),
			SSE: S3SSEConfig{
				Mode:     os.Getenv("S3_SSE_MODE"),
				KMSKeyID: os.Getenv("S3_SSE_KMS_KEY_ID"),
			},
		},
		Database: DatabaseConfig{
			DSN: os.Getenv("DATABASE_URL"),
		},
		Pipeline: PipelineConfig{
			MaxStoryIterations:        envInt("MAX_STORY_ITERATIONS", 3),
			StoryApprovalThreshold:    envFloat("STORY_APPROVAL_THRESHOLD", 85),
			MaxSceneIterations:        envInt("MAX_SCENE_ITERATIONS", 3),
			SceneApprovalThreshold:    envFloat("SCENE_APPROVAL_THRESHOLD", 80),
			MaxCohesionIterations:     envInt("MAX_COHESION_ITERATIONS", 2),
			CohesionApprovalThreshold: envFloat("COHESION_APPROVAL_THRESHOLD", 75),

			MaxEnhanceParallelism: envInt("MAX_ENHANCE_PARALLELISM", 4),
			VideoSynthConcurrency: envInt("VIDEO_SYNTH_CONCURRENCY", 4),

			LLMTimeoutSeconds:   envInt("LLM_TIMEOUT_SECONDS", 120),
			VideoTimeoutSeconds: envInt("VIDEO_TIMEOUT_SECONDS", 600),

			ScratchBasePath:        firstNonEmpty(os.Getenv("SCRATCH_BASE_PATH"), "/var/lib/adreel/scratch"),
			PerImageSizeCapBytes:   envInt64("PER_IMAGE_SIZE_CAP_BYTES", 10*1024*1024),
			ProgressBusBufferDepth: envInt("PROGRESS_BUS_BUFFER_DEPTH", 256),

			VideoStitcher: VideoStitcherConfig{
				TargetFrameRate:       envInt("STITCHER_TARGET_FRAME_RATE", 24),
				IntroFadeSeconds:      envFloat("STITCHER_INTRO_FADE_SECONDS", 0.3),
				OutroFadeSeconds:      envFloat("STITCHER_OUTRO_FADE_SECONDS", 0.3),
				VideoBitrateKbps:      envInt("STITCHER_VIDEO_BITRATE_KBPS", 5000),
				FFmpegBinary:          firstNonEmpty(os.Getenv("STITCHER_FFMPEG_BINARY"), "ffmpeg"),
				FFprobeBinary:         firstNonEmpty(os.Getenv("STITCHER_FFPROBE_BINARY"), "ffprobe"),
				CommandTimeoutSeconds: envInt("STITCHER_COMMAND_TIMEOUT_SECONDS", 300),
			},
		},
		HTTP: HTTPConfig{
			Addr: firstNonEmpty(os.Getenv("HTTP_ADDR"), ":8090"),
		},
		VideoModel: VideoModelConfig{
			BaseURL: os.Getenv("VIDEO_MODEL_BASE_URL"),
			APIKey:  os.Getenv("VIDEO_MODEL_API_KEY"),
		},
		LogPath:     os.Getenv("LOG_PATH"),
		LogLevel:    firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		LogPayloads: envBool("LOG_PAYLOADS", false),
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
