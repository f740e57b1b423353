// Package agentsys gives all nine agent roles (Story Director, Story
// Critic, Scene Writer, Scene Critic, Scene Cohesor, Scene Enhancer, Scene
// Aligner, plus the two non-LLM roles handled elsewhere) one shared shape:
// a system prompt template, role-appropriate sampling parameters, and an
// output parser, dispatched through a single RunAgent call.
package agentsys

import (
	"context"
	"fmt"
	"strings"
	"time"

	"adreel/internal/convrecorder"
	"adreel/internal/domain"
	"adreel/internal/llm"
	"adreel/internal/progressbus"
)

// Role names every agent wrapper, used for metadata on recorded
// interactions and progress events.
type Role string

const (
	RoleStoryDirector Role = "story_director"
	RoleStoryCritic   Role = "story_critic"
	RoleSceneWriter   Role = "scene_writer"
	RoleSceneCritic   Role = "scene_critic"
	RoleSceneCohesor  Role = "scene_cohesor"
	RoleSceneEnhancer Role = "scene_enhancer"
	RoleSceneAligner  Role = "scene_aligner"
)

// creativeParams and criticParams are the two sampling profiles named in
// the component design: creative roles favor variety and headroom, critic
// and structured-output roles favor determinism.
var (
	creativeParams = llm.SamplingParams{Temperature: 0.9, MaxTokens: 4096}
	criticParams   = llm.SamplingParams{Temperature: 0.3, MaxTokens: 2048}
)

// ParamsFor returns the sampling profile for a role.
func ParamsFor(role Role) llm.SamplingParams {
	switch role {
	case RoleStoryCritic, RoleSceneCritic, RoleSceneCohesor:
		return criticParams
	default:
		return creativeParams
	}
}

// Config carries everything RunAgent needs for one role: its system
// prompt, sampling parameters, and a parse function translating the raw
// text response into the role's output shape. A nil Parse means the raw
// text itself is the output (the two free-form creative roles).
type Config struct {
	Role         Role
	SystemPrompt string
	Params       llm.SamplingParams
	Parse        func(raw string) (any, error)
}

// malformedRetries is how many times a structured role gets a
// schema-reminder suffix appended before the Orchestrator gives up on the
// iteration, per §4.7.
const malformedRetries = 3

const schemaReminderSuffix = "\n\nYour previous response could not be parsed. Respond with ONLY the requested JSON object, no prose, no markdown fences."

// RunAgent assembles the system + user turn, calls the provider, parses
// the response (retrying up to malformedRetries times on parse failure by
// appending a schema reminder), and records the prompt/response pair.
func RunAgent(
	ctx context.Context,
	provider llm.Provider,
	cfg Config,
	userContent string,
	images []llm.ImageAttachment,
	recorder *convrecorder.Recorder,
	bus *progressbus.Bus,
	meta domain.InteractionMetadata,
) (raw string, parsed any, err error) {
	recorder.RecordPrompt(string(cfg.Role), userContent, meta)
	if bus != nil {
		bus.PublishInteraction(domain.AgentInteraction{
			AgentName:       string(cfg.Role),
			InteractionType: domain.InteractionPrompt,
			Content:         userContent,
			Metadata:        meta,
			Timestamp:       time.Now(),
		})
	}

	params := cfg.Params
	if params == (llm.SamplingParams{}) {
		params = ParamsFor(cfg.Role)
	}

	recordResponse := func(content string, parsed any) {
		respMeta := meta
		switch v := parsed.(type) {
		case CriticResult:
			respMeta.Score = float64(v.Score)
			respMeta.Status = v.Status
		case domain.CohesionReport:
			respMeta.Score = v.OverallCohesionScore
		case string:
			respMeta.WordCount = len(strings.Fields(v))
		}
		recorder.RecordResponse(string(cfg.Role), content, respMeta)
		if bus != nil {
			bus.PublishInteraction(domain.AgentInteraction{
				AgentName:       string(cfg.Role),
				InteractionType: domain.InteractionResponse,
				Content:         content,
				Metadata:        respMeta,
				Timestamp:       time.Now(),
			})
		}
	}

	attempt := 0
	suffix := ""
	for {
		attempt++
		msgs := []llm.Message{
			{Role: "system", Content: cfg.SystemPrompt},
			{Role: "user", Content: userContent + suffix, Images: images},
		}
		resp, callErr := provider.Chat(ctx, msgs, params)
		if callErr != nil {
			return "", nil, callErr
		}
		raw = resp.Content

		if cfg.Parse == nil {
			recordResponse(raw, raw)
			return raw, raw, nil
		}

		parsed, err = cfg.Parse(raw)
		if err == nil {
			recordResponse(raw, parsed)
			return raw, parsed, nil
		}
		if attempt > malformedRetries {
			recordResponse(raw, nil)
			return raw, nil, fmt.Errorf("%s: malformed response after %d attempts: %w", cfg.Role, attempt, err)
		}
		suffix = schemaReminderSuffix
	}
}
