package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxhire/voxhire/pkg/provider"
)

// fakeSleep records requested delays and returns instantly.
func fakeSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func transient() error {
	return &provider.StatusError{Target: "tts", Code: 503, Body: "unavailable"}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &provider.StatusError{Code: 429}, true},
		{"500", &provider.StatusError{Code: 500}, true},
		{"502", &provider.StatusError{Code: 502}, true},
		{"503", &provider.StatusError{Code: 503}, true},
		{"504", &provider.StatusError{Code: 504}, true},
		{"400", &provider.StatusError{Code: 400}, false},
		{"401", &provider.StatusError{Code: 401}, false},
		{"404", &provider.StatusError{Code: 404}, false},
		{"transport", &provider.TransportError{Err: errors.New("connection reset")}, true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("weird"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetrier_SucceedsAfterOneTransientFailure(t *testing.T) {
	var delays []time.Duration
	r := NewRetrier("tts", RetryPolicy{})
	r.sleep = fakeSleep(&delays)

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return transient()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(delays) != 1 {
		t.Fatalf("slept %d times, want 1", len(delays))
	}
	// First backoff is 1s with ±20% jitter.
	if delays[0] < 800*time.Millisecond || delays[0] > 1200*time.Millisecond {
		t.Errorf("first backoff = %v, want within 1s ± 20%%", delays[0])
	}
}

func TestRetrier_BackoffDoubles(t *testing.T) {
	var delays []time.Duration
	r := NewRetrier("tts", RetryPolicy{})
	r.sleep = fakeSleep(&delays)

	_ = r.Do(context.Background(), func(context.Context) error { return transient() })

	// 3 attempts means 2 sleeps: ~1s then ~2s.
	if len(delays) != 2 {
		t.Fatalf("slept %d times, want 2", len(delays))
	}
	if delays[1] < 1600*time.Millisecond || delays[1] > 2400*time.Millisecond {
		t.Errorf("second backoff = %v, want within 2s ± 20%%", delays[1])
	}
}

func TestRetrier_ExhaustsAfterMaxAttempts(t *testing.T) {
	var delays []time.Duration
	r := NewRetrier("tts", RetryPolicy{MaxAttempts: 3})
	r.sleep = fakeSleep(&delays)

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return transient()
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	var statusErr *provider.StatusError
	if !errors.As(err, &statusErr) {
		t.Errorf("err = %v, want the last StatusError", err)
	}
}

func TestRetrier_NonRetryableStopsImmediately(t *testing.T) {
	r := NewRetrier("question-gen", RetryPolicy{})
	r.sleep = fakeSleep(&[]time.Duration{})

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return &provider.StatusError{Code: 400, Body: "bad prompt"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (4xx must not be retried)", calls)
	}
}

func TestRetrier_CircuitOpenStopsImmediately(t *testing.T) {
	r := NewRetrier("avatar", RetryPolicy{})
	r.sleep = fakeSleep(&[]time.Duration{})

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return ErrCircuitOpen
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (open breaker must fail fast)", calls)
	}
}

func TestRetrier_CancelledDuringBackoff(t *testing.T) {
	r := NewRetrier("tts", RetryPolicy{InitialBackoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func(context.Context) error { return transient() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestJitter_StaysWithinFraction(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jitter(time.Second, 0.2)
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("jitter(1s, 0.2) = %v, want within ±20%%", d)
		}
	}
}
