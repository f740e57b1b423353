// Package anthropic adapts the Anthropic Messages API to the narrow
// llm.Provider interface used by the nine agent roles: one system message,
// a handful of user/assistant turns, optional reference-image attachments
// on user turns, and a single non-streaming response. No tool calling, no
// streaming: the pipeline only ever needs one completion per agent step.
package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"adreel/internal/config"
	"adreel/internal/llm"
	"adreel/internal/observability"
)

const defaultMaxTokens int64 = 4096

// Client is the Anthropic-backed llm.Provider.
type Client struct {
	sdk   anthropic.Client
	model string
}

// New builds an Anthropic client from configuration. httpClient, when
// non-nil, should already be instrumented (see observability.NewHTTPClient)
// so every completion call is traced like any other outbound dependency.
func New(cfg config.AnthropicConfig, httpClient *http.Client) *Client {
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

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5)
	}

	return &Client{sdk: anthropic.NewClient(opts...), model: model}
}

// Chat implements llm.Provider.
func (c *Client) Chat(ctx context.Context, msgs []llm.Message, params llm.SamplingParams) (llm.Message, error) {
	sys, converted, err := adaptMessages(msgs)
	if err != nil {
		return llm.Message{}, err
	}

	model := strings.TrimSpace(params.Model)
	if model == "" {
		model = c.model
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqParams := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    converted,
		System:      sys,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(params.Temperature),
	}

	ctx, span := llm.StartRequestSpan(ctx, "Anthropic Chat", model, 0, len(msgs))
	defer span.End()
	llm.LogRedactedPrompt(ctx, msgs)
	log := observability.LoggerWithTrace(ctx)

	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, reqParams)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", model).Dur("duration", dur).Msg("anthropic_chat_error")
		return llm.Message{}, fmt.Errorf("anthropic chat: %w", err)
	}

	llm.LogRedactedResponse(ctx, resp)
	out := messageFromResponse(resp)

	promptTokens := int(resp.Usage.InputTokens + resp.Usage.CacheCreationInputTokens + resp.Usage.CacheReadInputTokens)
	completionTokens := int(resp.Usage.OutputTokens)
	llm.RecordTokenAttributes(span, promptTokens, completionTokens, promptTokens+completionTokens)
	llm.RecordTokenMetrics(model, promptTokens, completionTokens)

	log.Debug().
		Str("model", model).
		Dur("duration", dur).
		Int("prompt_tokens", promptTokens).
		Int("completion_tokens", completionTokens).
		Msg("anthropic_chat_ok")

	return out, nil
}

func adaptMessages(msgs []llm.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam, error) {
	if len(msgs) == 0 {
		return nil, nil, fmt.Errorf("anthropic provider: messages required")
	}
	var system []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(msgs))

	for _, m := range msgs {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case "system":
			if strings.TrimSpace(m.Content) != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case "user":
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Images)+1)
			for _, img := range m.Images {
				blocks = append(blocks, anthropic.NewImageBlockBase64(img.MIMEType, base64.StdEncoding.EncodeToString(img.Data)))
			}
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		case "assistant":
			if strings.TrimSpace(m.Content) != "" {
				out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			}
		default:
			return nil, nil, fmt.Errorf("anthropic provider: unsupported role %q", m.Role)
		}
	}
	return system, out, nil
}

func messageFromResponse(resp *anthropic.Message) llm.Message {
	if resp == nil {
		return llm.Message{}
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return llm.Message{Role: "assistant", Content: sb.String()}
}
