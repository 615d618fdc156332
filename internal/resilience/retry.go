package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/voxhire/voxhire/pkg/provider"
)

// RetryPolicy holds tuning knobs for a [Retrier].
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt. Default: 1s.
	InitialBackoff time.Duration

	// Multiplier scales the backoff after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction randomises each delay by ±fraction. Default: 0.2.
	JitterFraction float64
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.JitterFraction < 0 || p.JitterFraction >= 1 {
		p.JitterFraction = 0.2
	}
	return p
}

// Retryable reports whether err may succeed on a later attempt. It is a pure
// function of the error tags defined in pkg/provider: a vendor status in
// {429, 500, 502, 503, 504} or a transport failure is retryable; any other
// status is not, and neither is caller-side cancellation.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}

	var transportErr *provider.TransportError
	return errors.As(err, &transportErr)
}

// Retrier runs a call up to MaxAttempts times with exponential backoff and
// jitter, retrying only errors [Retryable] approves of. A rejection by an
// open circuit breaker aborts the attempt loop immediately.
type Retrier struct {
	name   string
	policy RetryPolicy

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a [Retrier] named after its vendor target. Zero-value
// policy fields are replaced with defaults.
func NewRetrier(name string, policy RetryPolicy) *Retrier {
	return &Retrier{
		name:   name,
		policy: policy.withDefaults(),
		sleep:  sleepCtx,
	}
}

// Do runs fn until it succeeds, a non-retryable error occurs, the breaker
// reports open, or the attempt budget is spent. The returned error is the
// last error observed.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := r.policy.InitialBackoff

	var err error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrCircuitOpen) || !Retryable(err) {
			return err
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := jitter(backoff, r.policy.JitterFraction)
		slog.Debug("retrying vendor call",
			"name", r.name,
			"attempt", attempt,
			"backoff", delay,
			"error", err)
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		backoff = time.Duration(float64(backoff) * r.policy.Multiplier)
	}
	return err
}

// jitter randomises d by ±fraction.
func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	offset := (rand.Float64()*2 - 1) * fraction
	return time.Duration(float64(d) * (1 + offset))
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
