// Package videomodel talks to the external video synthesis provider. No
// SDK for this exists anywhere in the reference corpus (see DESIGN.md), so
// the client is a plain net/http call instrumented the same way every
// other outbound dependency in this codebase is: otelhttp transport,
// trace-enriched logging, and the shared apperr taxonomy for classifying
// failures into the retry/no-retry buckets §4.5 and §7 require.
package videomodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adreel/internal/apperr"
	"adreel/internal/domain"
	"adreel/internal/observability"
)

// Client synthesizes one video clip per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Config configures the external video model endpoint.
type Config struct {
	BaseURL string
	APIKey  string
}

// New builds a Client. httpClient should already be otelhttp-instrumented.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

type synthesizeRequest struct {
	Prompt                string         `json:"prompt"`
	NegativePrompt        string         `json:"negative_prompt"`
	DurationSeconds       int            `json:"duration_seconds"`
	AspectRatio           string         `json:"aspect_ratio"`
	Resolution            string         `json:"resolution"`
	GenerateAudio         bool           `json:"generate_audio"`
	ReferenceImageHandles []string       `json:"reference_image_handles,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
}

type synthesizeResponse struct {
	VideoBase64 string  `json:"video_base64"`
	Cost        float64 `json:"cost"`
}

type apiErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Synthesize calls the video model for one scene and returns the raw video
// bytes and the provider's reported cost. Errors are classified into the
// apperr taxonomy so the caller's retry policy can distinguish transient
// transport failures from content-policy rejections.
func (c *Client) Synthesize(ctx context.Context, params domain.VideoPromptParameters) (data []byte, cost float64, err error) {
	body, err := json.Marshal(synthesizeRequest{
		Prompt:                params.Prompt,
		NegativePrompt:        params.NegativePrompt,
		DurationSeconds:       params.DurationSeconds,
		AspectRatio:           params.AspectRatio,
		Resolution:            params.Resolution,
		GenerateAudio:         params.GenerateAudio,
		ReferenceImageHandles: params.ReferenceImageHandles,
		Metadata:              params.Metadata,
	})
	if err != nil {
		return nil, 0, apperr.New(apperr.InternalIO, "videomodel", fmt.Errorf("marshal request: %w", err))
	}

	url := c.baseURL + "/v1/videos:synthesize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, apperr.New(apperr.InternalIO, "videomodel", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	log := observability.LoggerWithTrace(ctx)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	dur := time.Since(start)
	if err != nil {
		log.Warn().Err(err).Int("scene", params.SceneNumber).Dur("duration", dur).Msg("videomodel_transport_error")
		return nil, 0, apperr.New(apperr.TransientNetwork, "videomodel", err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, 0, apperr.New(apperr.TransientNetwork, "videomodel", readErr)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var out synthesizeResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, 0, apperr.New(apperr.InternalIO, "videomodel", fmt.Errorf("decode response: %w", err))
		}
		raw, err := decodeBase64(out.VideoBase64)
		if err != nil {
			return nil, 0, apperr.New(apperr.InternalIO, "videomodel", err)
		}
		log.Debug().Int("scene", params.SceneNumber).Dur("duration", dur).Float64("cost", out.Cost).Msg("videomodel_ok")
		return raw, out.Cost, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, 0, apperr.New(apperr.UpstreamRateLimit, "videomodel", fmt.Errorf("rate limited: %s", string(respBody)))

	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusForbidden:
		var apiErr apiErrorBody
		_ = json.Unmarshal(respBody, &apiErr)
		reason := apiErr.Message
		if reason == "" {
			reason = string(respBody)
		}
		return nil, 0, apperr.New(apperr.UpstreamContentRejected, "videomodel", fmt.Errorf("content rejected: %s", reason))

	case resp.StatusCode >= 500:
		return nil, 0, apperr.New(apperr.TransientNetwork, "videomodel", fmt.Errorf("upstream error %d: %s", resp.StatusCode, string(respBody)))

	default:
		return nil, 0, apperr.New(apperr.InternalIO, "videomodel", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody)))
	}
}
