package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/internal/notify"
)

// avatarReadyPayload is the data line for avatar-ready events.
type avatarReadyPayload struct {
	QuestionID   int64  `json:"questionId"`
	PresignedURL string `json:"presignedUrl"`
}

// avatarFailedPayload is the data line for avatar-failed events.
type avatarFailedPayload struct {
	QuestionID int64 `json:"questionId"`
}

// handleEvents streams avatar progress as server-sent events until the
// interview opens, the client disconnects, or the stream idles out.
//
//	GET /api/interviews/{id}/events
//
// The subscription is taken out before the status check: interview-ready
// landing between the two would otherwise be lost. A caller attaching after
// the interview already left GENERATING_VIDEOS gets an immediate
// interview-ready and the stream ends. Polling the interview DTO remains
// the fallback for clients that cannot hold a stream open.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, fmt.Errorf("response writer does not support streaming"))
		return
	}

	events, cancel := s.hub.Subscribe(id)
	defer cancel()

	dto, err := s.svc.Get(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if s.metrics != nil {
		s.metrics.ProgressSubscribers.Add(r.Context(), 1)
		defer s.metrics.ProgressSubscribers.Add(context.Background(), -1)
	}

	log := s.log.With("interview_id", id, "user_id", userID(r.Context()))
	log.Debug("progress stream opened")

	if dto.Status != string(domain.StatusGeneratingVideos) {
		writeSSE(w, notify.Event{Kind: notify.KindInterviewReady})
		flusher.Flush()
		return
	}

	idle := time.NewTimer(s.cfg.SSEIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug("progress stream client disconnected")
			return
		case <-s.closing:
			return
		case <-idle.C:
			log.Info("progress stream idle, closing")
			return
		case evt, ok := <-events:
			if !ok {
				// The hub closed us: the terminal event was dropped on a
				// full buffer. The client falls back to polling the DTO.
				log.Warn("progress stream fell behind, closing")
				return
			}
			if err := writeSSE(w, evt); err != nil {
				return
			}
			flusher.Flush()
			if evt.Kind == notify.KindInterviewReady {
				return
			}
			idle.Reset(s.cfg.SSEIdleTimeout)
		}
	}
}

// writeSSE frames one event as "event: <kind>" with a JSON data line.
func writeSSE(w io.Writer, evt notify.Event) error {
	var payload any
	switch evt.Kind {
	case notify.KindAvatarReady:
		payload = avatarReadyPayload{QuestionID: evt.QuestionID, PresignedURL: evt.PresignedURL}
	case notify.KindAvatarFailed:
		payload = avatarFailedPayload{QuestionID: evt.QuestionID}
	default:
		payload = struct{}{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, data)
	return err
}
