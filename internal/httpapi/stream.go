package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"adreel/internal/domain"
)

type progressFrame struct {
	Type      string         `json:"type"`
	Step      domain.Step    `json:"step"`
	Status    string         `json:"status"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp"`
}

type interactionFrame struct {
	Type            string                      `json:"type"`
	Agent           string                      `json:"agent"`
	InteractionType domain.InteractionType      `json:"interaction_type"`
	Content         string                      `json:"content"`
	Metadata        domain.InteractionMetadata  `json:"metadata"`
	Timestamp       string                      `json:"timestamp"`
}

// handleStream implements the SSE progress channel of §6.2: one frame per
// ProgressEvent or AgentInteraction, closing after the first terminal
// ProgressEvent.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	bus := s.buses.GetOrCreate(id)

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := writeFrame(w, evt); err != nil {
				log.Warn().Err(err).Str("generation_id", id).Msg("write_stream_frame")
				return
			}
			flusher.Flush()
			if isTerminal(evt) {
				return
			}
		}
	}
}

// isTerminal reports whether an event ends the stream: the completion
// event (step=complete, status=completed) or any failure. Intermediate
// phase boundaries (upload/story/scenes/video_params completed) keep the
// channel open.
func isTerminal(evt domain.StreamEvent) bool {
	if evt.Kind != domain.StreamEventProgress || evt.Progress == nil {
		return false
	}
	if evt.Progress.Status == domain.EventFailed {
		return true
	}
	return evt.Progress.Step == domain.StepComplete && evt.Progress.Status == domain.EventCompleted
}

func writeFrame(w http.ResponseWriter, evt domain.StreamEvent) error {
	var payload any
	switch evt.Kind {
	case domain.StreamEventProgress:
		p := evt.Progress
		payload = progressFrame{
			Type:      string(domain.StreamEventProgress),
			Step:      p.Step,
			Status:    string(p.Status),
			Progress:  p.Progress,
			Message:   p.Message,
			Data:      p.Data,
			Timestamp: p.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
	case domain.StreamEventLLMInteraction:
		a := evt.Interaction
		payload = interactionFrame{
			Type:            string(domain.StreamEventLLMInteraction),
			Agent:           a.AgentName,
			InteractionType: a.InteractionType,
			Content:         a.Content,
			Metadata:        a.Metadata,
			Timestamp:       a.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
	default:
		return nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}
