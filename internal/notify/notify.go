// Package notify fans interview progress out to connected clients.
//
// The hub routes three event kinds per interview: avatar-ready and
// avatar-failed as the pipeline finishes each question, and interview-ready
// exactly once when the whole interview becomes answerable. interview-ready
// is terminal: the hub closes every subscriber channel for that interview
// after delivering it.
//
// Delivery is best effort. A subscriber that cannot keep up loses events
// rather than blocking the pipeline.
package notify

import (
	"log/slog"
	"sync"
)

// Kind names a progress event.
type Kind string

const (
	// KindAvatarReady fires when one question's avatar video is stored and
	// playable. The event carries a presigned URL for immediate playback.
	KindAvatarReady Kind = "avatar-ready"

	// KindAvatarFailed fires when one question's avatar pipeline gave up.
	KindAvatarFailed Kind = "avatar-failed"

	// KindInterviewReady fires once, when every question has been resolved
	// one way or the other and the interview is answerable.
	KindInterviewReady Kind = "interview-ready"
)

// Event is one progress notification for one interview.
type Event struct {
	Kind Kind

	// QuestionID is set for the two avatar kinds, zero for interview-ready.
	QuestionID int64

	// PresignedURL is set for avatar-ready only.
	PresignedURL string
}

// Hub routes progress events to per-interview subscribers.
// All methods are safe for concurrent use.
type Hub struct {
	log        *slog.Logger
	bufferSize int

	mu   sync.Mutex
	subs map[int64][]chan Event
}

// Option is a functional option for configuring the Hub.
type Option func(*Hub)

// WithLogger sets the logger used for dropped events.
func WithLogger(log *slog.Logger) Option {
	return func(h *Hub) {
		h.log = log
	}
}

// WithBufferSize overrides the per-subscriber channel buffer. An interview
// produces at most one event per question plus the terminal one, so the
// default of 16 absorbs a full burst for typical question counts.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// NewHub returns an initialised Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		log:        slog.Default(),
		bufferSize: 16,
		subs:       make(map[int64][]chan Event),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Subscribe registers a listener for interviewID's progress. It returns the
// receive channel and a cancel function the caller must invoke on disconnect.
// The channel is closed by the hub on interview-ready or by cancel, whichever
// comes first.
func (h *Hub) Subscribe(interviewID int64) (<-chan Event, func()) {
	ch := make(chan Event, h.bufferSize)

	h.mu.Lock()
	h.subs[interviewID] = append(h.subs[interviewID], ch)
	h.mu.Unlock()

	cancel := func() { h.unsubscribe(interviewID, ch) }
	return ch, cancel
}

// unsubscribe removes ch and closes it. Removal under the lock makes the
// close race-free against a concurrent InterviewReady: whoever removes the
// channel from the map owns the close.
func (h *Hub) unsubscribe(interviewID int64, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[interviewID]
	for i, s := range subs {
		if s == ch {
			h.subs[interviewID] = append(subs[:i], subs[i+1:]...)
			if len(h.subs[interviewID]) == 0 {
				delete(h.subs, interviewID)
			}
			close(ch)
			return
		}
	}
}

// AvatarReady announces that questionID's avatar video is stored; url is a
// presigned GET for immediate playback.
func (h *Hub) AvatarReady(interviewID, questionID int64, url string) {
	h.publish(interviewID, Event{Kind: KindAvatarReady, QuestionID: questionID, PresignedURL: url})
}

// AvatarFailed announces that questionID's avatar pipeline gave up. The
// question stays answerable without a video.
func (h *Hub) AvatarFailed(interviewID, questionID int64) {
	h.publish(interviewID, Event{Kind: KindAvatarFailed, QuestionID: questionID})
}

// InterviewReady announces the terminal event and closes every subscriber
// channel for interviewID. Later events for the interview go nowhere.
func (h *Hub) InterviewReady(interviewID int64) {
	evt := Event{Kind: KindInterviewReady}

	h.mu.Lock()
	subs := h.subs[interviewID]
	delete(h.subs, interviewID)
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			h.log.Warn("subscriber too slow, terminal event dropped",
				"interview_id", interviewID)
		}
		close(ch)
	}
}

// publish delivers evt to every subscriber of interviewID, dropping it for
// subscribers whose buffer is full.
func (h *Hub) publish(interviewID int64, evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[interviewID] {
		select {
		case ch <- evt:
		default:
			h.log.Warn("subscriber too slow, event dropped",
				"interview_id", interviewID,
				"kind", string(evt.Kind))
		}
	}
}

// SubscriberCount reports active subscribers across all interviews.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for _, subs := range h.subs {
		count += len(subs)
	}
	return count
}
