package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/pkg/provider"
)

func newTestExecutor(cfg ExecutorConfig) *Executor {
	e := NewExecutor(cfg)
	e.retrier.sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

func TestExecutor_SuccessPassesThrough(t *testing.T) {
	e := newTestExecutor(ExecutorConfig{Target: domain.TargetTTS})

	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if got := e.BreakerState(); got != StateClosed {
		t.Errorf("BreakerState() = %v, want %v", got, StateClosed)
	}
}

func TestExecutor_ExhaustionMapsToExhausted(t *testing.T) {
	e := newTestExecutor(ExecutorConfig{Target: domain.TargetTTS})

	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return &provider.StatusError{Target: domain.TargetTTS, Code: 503}
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	var svcErr *domain.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v, want *domain.ExternalServiceError", err)
	}
	if svcErr.Kind != domain.FailureExhausted {
		t.Errorf("Kind = %v, want %v", svcErr.Kind, domain.FailureExhausted)
	}
	if svcErr.Target != domain.TargetTTS {
		t.Errorf("Target = %q, want %q", svcErr.Target, domain.TargetTTS)
	}
	var statusErr *provider.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 503 {
		t.Errorf("err does not unwrap to the vendor StatusError: %v", err)
	}
}

func TestExecutor_NonRetryableMapsToNonRetryable(t *testing.T) {
	e := newTestExecutor(ExecutorConfig{Target: domain.TargetQuestionGen})

	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return &provider.StatusError{Target: domain.TargetQuestionGen, Code: 422}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	var svcErr *domain.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v, want *domain.ExternalServiceError", err)
	}
	if svcErr.Kind != domain.FailureNonRetryable {
		t.Errorf("Kind = %v, want %v", svcErr.Kind, domain.FailureNonRetryable)
	}
}

func TestExecutor_OpenBreakerMapsToOpen(t *testing.T) {
	e := newTestExecutor(ExecutorConfig{
		Target:  domain.TargetAvatar,
		Retry:   RetryPolicy{MaxAttempts: 1},
		Breaker: BreakerConfig{Window: 2, FailureRatio: 0.5},
	})

	boom := func(context.Context) error {
		return &provider.TransportError{Target: domain.TargetAvatar, Err: errors.New("reset")}
	}
	for i := 0; i < 2; i++ {
		if err := e.Do(context.Background(), boom); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if got := e.BreakerState(); got != StateOpen {
		t.Fatalf("BreakerState() = %v, want %v", got, StateOpen)
	}

	calls := 0
	err := e.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Errorf("fn ran %d times behind an open breaker, want 0", calls)
	}

	var svcErr *domain.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v, want *domain.ExternalServiceError", err)
	}
	if svcErr.Kind != domain.FailureOpen {
		t.Errorf("Kind = %v, want %v", svcErr.Kind, domain.FailureOpen)
	}
}

func TestExecutor_InFlightCap(t *testing.T) {
	e := newTestExecutor(ExecutorConfig{Target: domain.TargetSTT, MaxInFlight: 1})

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = e.Do(context.Background(), func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Do(ctx, func(context.Context) error { return nil })
	close(release)

	var svcErr *domain.ExternalServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v, want *domain.ExternalServiceError", err)
	}
	if svcErr.Kind != domain.FailureNonRetryable {
		t.Errorf("Kind = %v, want %v", svcErr.Kind, domain.FailureNonRetryable)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want wrapped context.DeadlineExceeded", err)
	}
}

func TestExecutor_Target(t *testing.T) {
	e := NewExecutor(ExecutorConfig{Target: domain.TargetFeedbackGen})
	if got := e.Target(); got != domain.TargetFeedbackGen {
		t.Errorf("Target() = %q, want %q", got, domain.TargetFeedbackGen)
	}
}

func TestExecutor_OnOutcome(t *testing.T) {
	type outcome struct {
		target  string
		result  string
		elapsed time.Duration
	}
	var seen []outcome

	e := newTestExecutor(ExecutorConfig{
		Target: domain.TargetTTS,
		OnOutcome: func(target, result string, elapsed time.Duration) {
			seen = append(seen, outcome{target, result, elapsed})
		},
	})

	if err := e.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = e.Do(context.Background(), func(context.Context) error {
		return &provider.StatusError{Target: domain.TargetTTS, Code: 503}
	})
	_ = e.Do(context.Background(), func(context.Context) error {
		return &provider.StatusError{Target: domain.TargetTTS, Code: 400}
	})

	want := []string{"ok", "exhausted", "non_retryable"}
	if len(seen) != len(want) {
		t.Fatalf("got %d outcomes, want %d", len(seen), len(want))
	}
	for i, w := range want {
		if seen[i].target != domain.TargetTTS {
			t.Errorf("outcome %d target = %q, want %q", i, seen[i].target, domain.TargetTTS)
		}
		if seen[i].result != w {
			t.Errorf("outcome %d = %q, want %q", i, seen[i].result, w)
		}
		if seen[i].elapsed < 0 {
			t.Errorf("outcome %d elapsed = %s, want >= 0", i, seen[i].elapsed)
		}
	}
}
