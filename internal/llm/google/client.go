// Package google adapts the Gemini GenerateContent API to the narrow
// llm.Provider interface used by the nine agent roles: a system instruction,
// user/assistant turns, optional reference-image attachments on user turns,
// and a single non-streaming response.
package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"adreel/internal/config"
	"adreel/internal/llm"
	"adreel/internal/observability"
)

// Client is the Gemini-backed llm.Provider.
type Client struct {
	client *genai.Client
	model  string
}

// New builds a Gemini client from configuration.
func New(cfg config.GoogleConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}

	httpOpts := genai.HTTPOptions{}
	if cfg.Timeout > 0 {
		t := time.Duration(cfg.Timeout) * time.Second
		httpOpts.Timeout = &t
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Chat implements llm.Provider.
func (c *Client) Chat(ctx context.Context, msgs []llm.Message, params llm.SamplingParams) (llm.Message, error) {
	model := strings.TrimSpace(params.Model)
	if model == "" {
		model = c.model
	}

	ctx, span := llm.StartRequestSpan(ctx, "Google Chat", model, 0, len(msgs))
	defer span.End()
	llm.LogRedactedPrompt(ctx, msgs)
	log := observability.LoggerWithTrace(ctx)

	contents, sysInstr, err := toContents(msgs)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("google_chat_to_contents_error")
		return llm.Message{}, err
	}

	genCfg := &genai.GenerateContentConfig{}
	if sysInstr != nil {
		genCfg.SystemInstruction = sysInstr
	}
	if params.Temperature > 0 {
		t := float32(params.Temperature)
		genCfg.Temperature = &t
	}
	if params.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(params.MaxTokens)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, genCfg)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", model).Dur("duration", dur).Msg("google_chat_error")
		return llm.Message{}, fmt.Errorf("google chat: %w", err)
	}

	out, err := messageFromResponse(resp)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Dur("duration", dur).Msg("google_chat_response_error")
		return llm.Message{}, err
	}
	llm.LogRedactedResponse(ctx, resp)

	var promptTokens, completionTokens int
	if resp.UsageMetadata != nil {
		promptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	llm.RecordTokenAttributes(span, promptTokens, completionTokens, promptTokens+completionTokens)
	llm.RecordTokenMetrics(model, promptTokens, completionTokens)

	log.Debug().
		Str("model", model).
		Dur("duration", dur).
		Int("prompt_tokens", promptTokens).
		Int("completion_tokens", completionTokens).
		Msg("google_chat_ok")

	return out, nil
}

func toContents(msgs []llm.Message) ([]*genai.Content, *genai.Content, error) {
	if len(msgs) == 0 {
		return nil, nil, fmt.Errorf("google provider: messages required")
	}
	var sysInstr *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case "system":
			if strings.TrimSpace(m.Content) != "" {
				sysInstr = genai.NewContentFromText(m.Content, genai.RoleUser)
			}
		case "user":
			parts := make([]*genai.Part, 0, len(m.Images)+1)
			for _, img := range m.Images {
				parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
			}
			if strings.TrimSpace(m.Content) != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
			}
		case "assistant":
			if strings.TrimSpace(m.Content) != "" {
				contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
			}
		default:
			return nil, nil, fmt.Errorf("google provider: unsupported role %q", m.Role)
		}
	}
	return contents, sysInstr, nil
}

func messageFromResponse(resp *genai.GenerateContentResponse) (llm.Message, error) {
	if resp == nil {
		return llm.Message{}, fmt.Errorf("google provider: nil response")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return llm.Message{}, fmt.Errorf("google provider: request blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return llm.Message{}, fmt.Errorf("google provider: no candidates in response")
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety:
		return llm.Message{}, fmt.Errorf("google provider: response blocked by safety filters")
	case genai.FinishReasonRecitation:
		return llm.Message{}, fmt.Errorf("google provider: response blocked due to recitation")
	}
	if candidate.Content == nil {
		return llm.Message{Role: "assistant"}, nil
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return llm.Message{Role: "assistant", Content: sb.String()}, nil
}
