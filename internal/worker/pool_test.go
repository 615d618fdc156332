package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsSubmittedJobs(t *testing.T) {
	p := New(Config{Workers: 4, QueueSize: 16})
	p.Start()
	defer p.Stop()

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		ok := p.Submit("count", func(context.Context) {
			defer wg.Done()
			count.Add(1)
		})
		if !ok {
			t.Fatalf("Submit returned false for job %d", i)
		}
	}
	wg.Wait()

	if got := count.Load(); got != 10 {
		t.Errorf("ran %d jobs, want 10", got)
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	p := New(Config{Workers: 1})
	p.Start()
	p.Stop()

	if p.Submit("late", func(context.Context) {}) {
		t.Error("Submit after Stop returned true, want false")
	}
}

func TestPool_FullQueueShedsLoad(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 1})
	p.Start()
	defer p.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	// Occupy the single worker.
	p.Submit("blocker", func(context.Context) {
		close(started)
		<-block
	})
	<-started
	// Fill the queue.
	if !p.Submit("queued", func(context.Context) {}) {
		t.Fatal("queueing one job should succeed")
	}
	// Next submit must be rejected, not block.
	if p.Submit("overflow", func(context.Context) {}) {
		t.Error("Submit on full queue returned true, want false")
	}
	close(block)
}

func TestPool_ContainsPanics(t *testing.T) {
	p := New(Config{Workers: 1})
	p.Start()
	defer p.Stop()

	done := make(chan struct{})
	p.Submit("broken", func(context.Context) {
		panic("handler bug")
	})
	p.Submit("after", func(context.Context) {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not survive a panicking job")
	}
}

func TestPool_StopCancelsJobContext(t *testing.T) {
	p := New(Config{Workers: 1})
	p.Start()

	cancelled := make(chan struct{})
	started := make(chan struct{})
	p.Submit("long", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})
	<-started

	go p.Stop()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the job context")
	}
}

func TestPool_ShutdownDrainsQueuedJobs(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 8})
	p.Start()

	var ran atomic.Int64
	gate := make(chan struct{})
	started := make(chan struct{})
	p.Submit("gate", func(context.Context) {
		close(started)
		<-gate
		ran.Add(1)
	})
	<-started
	for i := 0; i < 3; i++ {
		p.Submit("queued", func(context.Context) { ran.Add(1) })
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(gate)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := ran.Load(); got != 4 {
		t.Errorf("ran %d jobs, want all 4 drained", got)
	}
}

func TestPool_ShutdownGraceExpiry(t *testing.T) {
	p := New(Config{Workers: 1})
	p.Start()

	released := make(chan struct{})
	started := make(chan struct{})
	p.Submit("slow", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(released)
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Shutdown(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Shutdown = %v, want context.DeadlineExceeded", err)
	}

	// Grace expiry must still cancel the job context.
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not cancel the job context on grace expiry")
	}
}

func TestPool_StopIsIdempotent(t *testing.T) {
	p := New(Config{Workers: 1})
	p.Start()
	p.Stop()
	p.Stop() // must not panic on double close
}
