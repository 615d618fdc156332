package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/voxhire/voxhire/internal/domain"
)

// ExecutorConfig assembles the resilience stack for one vendor target.
type ExecutorConfig struct {
	// Target is the vendor name (domain.Target*). Used for error tagging,
	// breaker naming, and logs.
	Target string

	// Retry tunes the attempt loop.
	Retry RetryPolicy

	// Breaker tunes the circuit breaker. Breaker.Name defaults to Target.
	Breaker BreakerConfig

	// MaxInFlight caps concurrent calls to the vendor, enforced before the
	// retry loop so retries cannot blow the quota. Default: 5.
	MaxInFlight int64

	// OnOutcome, when set, is called after every [Executor.Do] with the
	// logical outcome ("ok" or a lowercased [domain.FailureKind]) and the
	// elapsed wall time including retries and breaker waits.
	OnOutcome func(target, outcome string, elapsed time.Duration)
}

// Executor is the single entry point the pipelines use for a vendor call:
// it acquires the per-vendor in-flight slot, then runs retry(breaker(fn)).
// Failures surface as *domain.ExternalServiceError with the kind the caller
// needs (Exhausted, Open, NonRetryable).
type Executor struct {
	target    string
	retrier   *Retrier
	breaker   *Breaker
	sem       *semaphore.Weighted
	onOutcome func(target, outcome string, elapsed time.Duration)
}

// NewExecutor creates an [Executor] for cfg.Target.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = cfg.Target
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 5
	}
	return &Executor{
		target:    cfg.Target,
		retrier:   NewRetrier(cfg.Target, cfg.Retry),
		breaker:   NewBreaker(cfg.Breaker),
		sem:       semaphore.NewWeighted(cfg.MaxInFlight),
		onOutcome: cfg.OnOutcome,
	}
}

// Do runs fn under the target's in-flight cap, retrier, and breaker.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return &domain.ExternalServiceError{
			Target: e.target,
			Kind:   domain.FailureNonRetryable,
			Err:    fmt.Errorf("waiting for in-flight slot: %w", err),
		}
	}
	defer e.sem.Release(1)

	start := time.Now()
	err := e.retrier.Do(ctx, func(ctx context.Context) error {
		return e.breaker.Execute(func() error {
			return fn(ctx)
		})
	})
	if err == nil {
		e.reportOutcome("ok", start)
		return nil
	}

	kind := domain.FailureNonRetryable
	switch {
	case errors.Is(err, ErrCircuitOpen):
		kind = domain.FailureOpen
	case Retryable(err):
		kind = domain.FailureExhausted
	}
	e.reportOutcome(strings.ToLower(string(kind)), start)
	return &domain.ExternalServiceError{Target: e.target, Kind: kind, Err: err}
}

func (e *Executor) reportOutcome(outcome string, start time.Time) {
	if e.onOutcome != nil {
		e.onOutcome(e.target, outcome, time.Since(start))
	}
}

// BreakerState exposes the current breaker state for observability.
func (e *Executor) BreakerState() State {
	return e.breaker.State()
}

// Target returns the vendor name this executor guards.
func (e *Executor) Target() string {
	return e.target
}
