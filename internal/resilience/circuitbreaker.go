// Package resilience provides the retry and circuit-breaker primitives that
// wrap every external vendor call.
//
// The central types are [Breaker], a three-state breaker
// (closed → open → half-open) tripping on the failure ratio over a sliding
// window of recent calls, and [Executor], which composes a per-vendor
// in-flight cap, a [Retrier], and a [Breaker] into the single entry point the
// pipelines use. Polling loops for asynchronous vendor jobs are deliberately
// not run through the retrier: a "still processing" poll is not a failure.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Execute] when the breaker is in the
// open state and the open interval has not yet elapsed, or when the half-open
// probe budget is exhausted.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [Breaker].
type State int

const (
	// StateClosed is the normal operating state — all calls are forwarded.
	StateClosed State = iota

	// StateOpen indicates the breaker has tripped on its failure ratio.
	// Calls are rejected immediately with [ErrCircuitOpen] until the open
	// interval elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the open interval. A
	// limited number of calls are allowed through; a full success streak
	// closes the breaker, any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds tuning knobs for a [Breaker].
type BreakerConfig struct {
	// Name is a human-readable label used in log messages, normally the
	// vendor target.
	Name string

	// Window is the number of most recent call outcomes considered when
	// deciding whether to trip. The ratio is only evaluated once the window
	// is full. Default: 10.
	Window int

	// FailureRatio is the fraction of failures within a full window at or
	// above which the breaker opens. Default: 0.5.
	FailureRatio float64

	// OpenFor is how long the breaker stays open before transitioning to
	// half-open. Default: 30s.
	OpenFor time.Duration

	// HalfOpenProbes is the number of probe calls admitted in the half-open
	// state; that many consecutive successes close the breaker. Default: 3.
	HalfOpenProbes int
}

// Breaker implements a sliding-window circuit breaker. One Breaker exists per
// external vendor and is shared process-wide.
type Breaker struct {
	name           string
	window         int
	failureRatio   float64
	openFor        time.Duration
	halfOpenProbes int

	// now is replaceable in tests.
	now func() time.Time

	mu             sync.Mutex
	state          State
	outcomes       []bool // ring buffer, true = failure
	next           int
	filled         int
	openedAt       time.Time
	probes         int
	probeSuccesses int
}

// NewBreaker creates a [Breaker] with the supplied configuration. Zero-value
// config fields are replaced with defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Window <= 0 {
		cfg.Window = 10
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = 0.5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 3
	}
	return &Breaker{
		name:           cfg.Name,
		window:         cfg.Window,
		failureRatio:   cfg.FailureRatio,
		openFor:        cfg.OpenFor,
		halfOpenProbes: cfg.HalfOpenProbes,
		now:            time.Now,
		state:          StateClosed,
		outcomes:       make([]bool, cfg.Window),
	}
}

// Execute runs fn if the breaker allows it. In the open state it returns
// [ErrCircuitOpen] without calling fn. In the half-open state up to
// HalfOpenProbes calls are permitted.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.openFor {
			// Transition to half-open.
			b.state = StateHalfOpen
			b.probes = 0
			b.probeSuccesses = 0
			slog.Info("circuit breaker transitioning to half-open",
				"name", b.name)
		} else {
			b.mu.Unlock()
			return ErrCircuitOpen
		}

	case StateHalfOpen:
		if b.probes >= b.halfOpenProbes {
			// Probe budget spent; stay half-open until the in-flight
			// probes decide the outcome.
			b.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	inHalfOpen := b.state == StateHalfOpen
	if inHalfOpen {
		b.probes++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.recordFailure(inHalfOpen)
	} else {
		b.recordSuccess(inHalfOpen)
	}
	return err
}

// recordFailure handles failure accounting. Must be called with b.mu held.
func (b *Breaker) recordFailure(inHalfOpen bool) {
	if inHalfOpen {
		// Any failure during probing immediately re-opens.
		b.open()
		slog.Warn("circuit breaker re-opened from half-open",
			"name", b.name)
		return
	}
	if b.state != StateClosed {
		// A call admitted before the breaker opened is finishing late; its
		// outcome no longer matters.
		return
	}

	b.push(true)
	b.evaluate()
}

// recordSuccess handles success accounting. Must be called with b.mu held.
func (b *Breaker) recordSuccess(inHalfOpen bool) {
	if inHalfOpen {
		b.probeSuccesses++
		if b.probeSuccesses >= b.halfOpenProbes {
			b.state = StateClosed
			b.clearWindow()
			slog.Info("circuit breaker closed after successful probes",
				"name", b.name)
		}
		return
	}
	if b.state != StateClosed {
		return
	}
	b.push(false)
	b.evaluate()
}

// evaluate trips the breaker when the full window's failure ratio reaches
// the threshold. Must be called with b.mu held.
func (b *Breaker) evaluate() {
	if b.filled < b.window {
		return
	}
	failures := 0
	for _, failed := range b.outcomes {
		if failed {
			failures++
		}
	}
	ratio := float64(failures) / float64(b.window)
	if ratio >= b.failureRatio {
		b.open()
		slog.Warn("circuit breaker opened",
			"name", b.name,
			"window", b.window,
			"failure_ratio", ratio)
	}
}

// open moves the breaker to the open state and discards window history so a
// later close starts from a clean slate. Must be called with b.mu held.
func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.clearWindow()
}

// push appends an outcome to the sliding window. Must be called with b.mu held.
func (b *Breaker) push(failed bool) {
	b.outcomes[b.next] = failed
	b.next = (b.next + 1) % b.window
	if b.filled < b.window {
		b.filled++
	}
}

// clearWindow resets the outcome ring. Must be called with b.mu held.
func (b *Breaker) clearWindow() {
	for i := range b.outcomes {
		b.outcomes[i] = false
	}
	b.next = 0
	b.filled = 0
}

// State returns the current [State] of the breaker. If the breaker is open
// and the open interval has elapsed, the returned state is [StateHalfOpen]
// (the actual transition happens on the next [Execute] call).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.openFor {
		return StateHalfOpen
	}
	return b.state
}

// Reset manually forces the breaker back to [StateClosed], clearing all
// window history and probe counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.clearWindow()
	b.probes = 0
	b.probeSuccesses = 0
	slog.Info("circuit breaker manually reset", "name", b.name)
}
