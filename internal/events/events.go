// Package events provides the in-process event bus that decouples interview
// writes from the pipelines they trigger.
//
// Publication is transaction-aware: inside a write transaction, published
// events are staged on the context and only dispatched after the transaction
// commits; a rollback discards them. Handlers always run on the worker pool,
// never on the publishing goroutine.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voxhire/voxhire/internal/worker"
)

// Event is a typed bus payload.
type Event interface {
	// EventName identifies the event for subscription matching.
	EventName() string
}

// QuestionsCreated fires after the transaction that persisted a new
// interview's questions commits. It triggers the avatar pipeline fan-out.
type QuestionsCreated struct {
	InterviewID int64
	UserID      int64
	QuestionIDs []int64
}

// EventName implements Event.
func (QuestionsCreated) EventName() string { return "interview.questions_created" }

// Handler consumes one event. The context is the worker pool's context and
// is cancelled on shutdown.
type Handler func(ctx context.Context, evt Event)

// Bus routes events to subscribed handlers via a worker pool.
type Bus struct {
	pool *worker.Pool
	log  *slog.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
}

// Option is a functional option for configuring the Bus.
type Option func(*Bus)

// WithLogger sets the logger used for dropped dispatches.
func WithLogger(log *slog.Logger) Option {
	return func(b *Bus) {
		b.log = log
	}
}

// NewBus creates a Bus that runs handlers on pool.
func NewBus(pool *worker.Pool, opts ...Option) *Bus {
	b := &Bus{
		pool:     pool,
		log:      slog.Default(),
		handlers: make(map[string][]Handler),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscribe registers h for every event whose EventName matches name.
// Subscriptions are expected at composition time, before traffic flows.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish emits evt. If ctx carries a staging buffer (see WithStaging), the
// event is parked there until the surrounding transaction commits; otherwise
// it is dispatched immediately.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	if s := stagingFrom(ctx); s != nil {
		s.add(evt)
		return
	}
	b.dispatch(evt)
}

// FlushStaged dispatches every event staged on ctx. The transaction runner
// calls this exactly once, after a successful commit.
func (b *Bus) FlushStaged(ctx context.Context) {
	s := stagingFrom(ctx)
	if s == nil {
		return
	}
	for _, evt := range s.take() {
		b.dispatch(evt)
	}
}

// dispatch hands evt to each subscribed handler on the pool.
func (b *Bus) dispatch(evt Event) {
	b.mu.RLock()
	handlers := b.handlers[evt.EventName()]
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		if !b.pool.Submit(evt.EventName(), func(ctx context.Context) { h(ctx, evt) }) {
			b.log.Error("event dropped, worker pool rejected handler",
				"event", evt.EventName())
		}
	}
}

// ---- transaction staging ----

type stagingKey struct{}

// staging collects events published inside one transaction.
type staging struct {
	mu   sync.Mutex
	list []Event
}

func (s *staging) add(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, evt)
}

func (s *staging) take() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.list
	s.list = nil
	return out
}

// WithStaging returns a context carrying a fresh staging buffer. If ctx
// already carries one (a nested transaction), it is returned unchanged so
// the outermost commit flushes everything.
func WithStaging(ctx context.Context) context.Context {
	if stagingFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, stagingKey{}, &staging{})
}

func stagingFrom(ctx context.Context) *staging {
	s, _ := ctx.Value(stagingKey{}).(*staging)
	return s
}
