// Package openai adapts the OpenAI Chat Completions API to the narrow
// llm.Provider interface used by the nine agent roles: a system message,
// user/assistant turns, optional reference-image attachments on user turns
// (sent as base64 data URLs), and a single non-streaming response.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"adreel/internal/config"
	"adreel/internal/llm"
	"adreel/internal/observability"
)

// Client is the OpenAI-backed llm.Provider.
type Client struct {
	sdk   sdk.Client
	model string
}

// New builds an OpenAI client from configuration. httpClient, when non-nil,
// should already be instrumented so every completion call is traced like
// any other outbound dependency.
func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	for k, v := range cfg.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o"
	}

	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

// Chat implements llm.Provider.
func (c *Client) Chat(ctx context.Context, msgs []llm.Message, params llm.SamplingParams) (llm.Message, error) {
	converted, err := adaptMessages(msgs)
	if err != nil {
		return llm.Message{}, err
	}

	model := strings.TrimSpace(params.Model)
	if model == "" {
		model = c.model
	}

	reqParams := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: converted,
	}
	if params.Temperature > 0 {
		reqParams.Temperature = sdk.Float(params.Temperature)
	}
	if params.MaxTokens > 0 {
		reqParams.MaxCompletionTokens = sdk.Int(params.MaxTokens)
	}

	ctx, span := llm.StartRequestSpan(ctx, "OpenAI Chat", model, 0, len(msgs))
	defer span.End()
	llm.LogRedactedPrompt(ctx, msgs)
	log := observability.LoggerWithTrace(ctx)

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, reqParams)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", model).Dur("duration", dur).Msg("openai_chat_error")
		return llm.Message{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(comp.Choices) == 0 {
		return llm.Message{}, fmt.Errorf("openai chat: no choices returned")
	}

	llm.LogRedactedResponse(ctx, comp)
	out := llm.Message{Role: "assistant", Content: comp.Choices[0].Message.Content}

	promptTokens := int(comp.Usage.PromptTokens)
	completionTokens := int(comp.Usage.CompletionTokens)
	llm.RecordTokenAttributes(span, promptTokens, completionTokens, promptTokens+completionTokens)
	llm.RecordTokenMetrics(model, promptTokens, completionTokens)

	log.Debug().
		Str("model", model).
		Dur("duration", dur).
		Int("prompt_tokens", promptTokens).
		Int("completion_tokens", completionTokens).
		Msg("openai_chat_ok")

	return out, nil
}

func adaptMessages(msgs []llm.Message) ([]sdk.ChatCompletionMessageParamUnion, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("openai provider: messages required")
	}
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))

	for _, m := range msgs {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		case "user":
			if len(m.Images) == 0 {
				out = append(out, sdk.UserMessage(m.Content))
				continue
			}
			parts := make([]sdk.ChatCompletionContentPartUnionParam, 0, len(m.Images)+1)
			if strings.TrimSpace(m.Content) != "" {
				parts = append(parts, sdk.ChatCompletionContentPartUnionParam{
					OfText: &sdk.ChatCompletionContentPartTextParam{Text: m.Content},
				})
			}
			for _, img := range m.Images {
				dataURL := fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
				parts = append(parts, sdk.ChatCompletionContentPartUnionParam{
					OfImageURL: &sdk.ChatCompletionContentPartImageParam{
						ImageURL: sdk.ChatCompletionContentPartImageImageURLParam{URL: dataURL},
					},
				})
			}
			out = append(out, sdk.ChatCompletionMessageParamUnion{
				OfUser: &sdk.ChatCompletionUserMessageParam{
					Content: sdk.ChatCompletionUserMessageParamContentUnion{OfArrayOfContentParts: parts},
				},
			})
		default:
			return nil, fmt.Errorf("openai provider: unsupported role %q", m.Role)
		}
	}
	return out, nil
}
