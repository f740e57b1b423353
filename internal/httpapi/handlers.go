package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"adreel/internal/apperr"
	"adreel/internal/coordinator"
	"adreel/internal/domain"
	"adreel/internal/llm"
	"adreel/internal/persistence"
)

type referenceImageRequest struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type submitRequest struct {
	Prompt                string                  `json:"prompt"`
	Title                 string                  `json:"title"`
	BrandName             string                  `json:"brand_name"`
	ReferenceImages       []referenceImageRequest `json:"reference_images"`
	ClientGenerationID    string                  `json:"client_generation_id"`
	MaxStoryIterations    int                     `json:"max_story_iterations"`
	GenerateScenes        *bool                   `json:"generate_scenes"`
	GenerateVideos        *bool                   `json:"generate_videos"`
	TargetDurationSeconds int                     `json:"target_duration_seconds"`
}

type submitResponse struct {
	GenerationID string `json:"generation_id"`
	Status       string `json:"status"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	userID := r.Header.Get("X-User-ID")

	images := make([]coordinator.ReferenceImageInput, len(req.ReferenceImages))
	for i, ref := range req.ReferenceImages {
		data, err := base64.StdEncoding.DecodeString(ref.Data)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("reference image %d: invalid base64: %w", i+1, err))
			return
		}
		images[i] = coordinator.ReferenceImageInput{Name: ref.Name, MIMEType: ref.MIMEType, Data: data}
	}

	sub := coordinator.Submission{
		UserID:                userID,
		Prompt:                req.Prompt,
		Title:                 req.Title,
		BrandName:             req.BrandName,
		ReferenceImages:       images,
		ClientGenerationID:    req.ClientGenerationID,
		MaxStoryIterations:    req.MaxStoryIterations,
		GenerateScenes:        boolOrDefault(req.GenerateScenes, true),
		GenerateVideos:        boolOrDefault(req.GenerateVideos, true),
		TargetDurationSeconds: req.TargetDurationSeconds,
	}

	id, err := s.coord.Submit(r.Context(), sub)
	if err != nil {
		respondError(w, statusForErr(err), err)
		return
	}

	respondJSON(w, http.StatusAccepted, submitResponse{GenerationID: id, Status: string(domain.StatusProcessing)})
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

type generationResponse struct {
	GenerationID          string   `json:"generation_id"`
	Status                string   `json:"status"`
	FinalVideoPath        string   `json:"final_video_path,omitempty"`
	SceneVideoPaths       []string `json:"scene_video_paths,omitempty"`
	NumScenes             int      `json:"num_scenes,omitempty"`
	StoryScore            float64  `json:"story_score,omitempty"`
	CohesionScore         float64  `json:"cohesion_score,omitempty"`
	GenerationTimeSeconds float64  `json:"generation_time_seconds,omitempty"`
	ErrorMessage          string   `json:"error_message,omitempty"`
}

func toGenerationResponse(g domain.Generation) generationResponse {
	resp := generationResponse{GenerationID: g.ID, Status: string(g.Status)}
	switch g.Status {
	case domain.StatusCompleted:
		resp.FinalVideoPath = g.FinalVideoPath
		resp.SceneVideoPaths = g.SceneVideoPaths
		resp.NumScenes = g.NumScenes
		resp.StoryScore = g.StoryScore
		resp.CohesionScore = g.CohesionScore
		resp.GenerationTimeSeconds = g.GenerationSeconds
	case domain.StatusFailed:
		resp.ErrorMessage = g.ErrorMessage
	}
	return resp
}

// handleGet serves the polling fallback of §6.3.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	g, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, toGenerationResponse(g))
}

// handleConversation serves the terminal-only transcript retrieval of §6.3.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	g, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			respondError(w, http.StatusNotFound, err)
			return
		}
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if g.Status == domain.StatusProcessing {
		respondError(w, http.StatusNotFound, errors.New("conversation not available until generation terminates"))
		return
	}
	interactions, err := s.store.Conversation(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, interactions)
}

// handleCancel requests cancellation of an in-flight generation, per §5's
// cancellation requirement.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.coord.Cancel(id) {
		respondError(w, http.StatusNotFound, fmt.Errorf("generation %s is not cancellable", id))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleTokenMetrics reports per-model LLM token usage accumulated since
// process start, optionally limited to a trailing window via ?window=24h.
func (s *Server) handleTokenMetrics(w http.ResponseWriter, r *http.Request) {
	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("invalid window %q: %w", raw, err))
			return
		}
		window = d
	}
	if window <= 0 {
		respondJSON(w, http.StatusOK, map[string]any{"totals": llm.TokenTotalsSnapshot()})
		return
	}
	totals, applied := llm.TokenTotalsForWindow(window)
	respondJSON(w, http.StatusOK, map[string]any{
		"totals":         totals,
		"window_seconds": int64(applied.Seconds()),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode_response")
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

func statusForErr(err error) int {
	switch apperr.KindOf(err) {
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.Cancelled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
