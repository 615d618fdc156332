package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/voxhire/voxhire/internal/worker"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	pool := worker.New(worker.Config{Workers: 2, QueueSize: 16})
	pool.Start()
	t.Cleanup(pool.Stop)
	return NewBus(pool)
}

// collect subscribes to QuestionsCreated and returns a channel of received
// events.
func collect(b *Bus) <-chan Event {
	ch := make(chan Event, 16)
	b.Subscribe(QuestionsCreated{}.EventName(), func(_ context.Context, evt Event) {
		ch <- evt
	})
	return ch
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PublishWithoutStagingDispatchesImmediately(t *testing.T) {
	b := newTestBus(t)
	got := collect(b)

	b.Publish(context.Background(), QuestionsCreated{InterviewID: 7, QuestionIDs: []int64{1, 2}})

	evt := waitEvent(t, got)
	qc, ok := evt.(QuestionsCreated)
	if !ok {
		t.Fatalf("event type = %T, want QuestionsCreated", evt)
	}
	if qc.InterviewID != 7 || len(qc.QuestionIDs) != 2 {
		t.Errorf("event = %+v", qc)
	}
}

func TestBus_StagedEventsHeldUntilFlush(t *testing.T) {
	b := newTestBus(t)
	got := collect(b)

	ctx := WithStaging(context.Background())
	b.Publish(ctx, QuestionsCreated{InterviewID: 1})

	assertNoEvent(t, got)

	b.FlushStaged(ctx)
	waitEvent(t, got)
}

func TestBus_RollbackDiscardsStagedEvents(t *testing.T) {
	b := newTestBus(t)
	got := collect(b)

	ctx := WithStaging(context.Background())
	b.Publish(ctx, QuestionsCreated{InterviewID: 1})
	// A rollback simply never calls FlushStaged.

	assertNoEvent(t, got)
}

func TestBus_NestedStagingSharesOneBuffer(t *testing.T) {
	outer := WithStaging(context.Background())
	inner := WithStaging(outer)
	if stagingFrom(outer) != stagingFrom(inner) {
		t.Error("nested WithStaging created a second buffer")
	}
}

func TestBus_FlushIsDrainOnce(t *testing.T) {
	b := newTestBus(t)
	got := collect(b)

	ctx := WithStaging(context.Background())
	b.Publish(ctx, QuestionsCreated{InterviewID: 1})
	b.FlushStaged(ctx)
	waitEvent(t, got)

	b.FlushStaged(ctx)
	assertNoEvent(t, got)
}

func TestBus_HandlersRunOffPublishingGoroutine(t *testing.T) {
	b := newTestBus(t)

	publisher := make(chan struct{})
	ran := make(chan struct{})
	b.Subscribe(QuestionsCreated{}.EventName(), func(context.Context, Event) {
		// Block until the publisher has already returned.
		<-publisher
		close(ran)
	})

	b.Publish(context.Background(), QuestionsCreated{InterviewID: 1})
	close(publisher) // reached only if Publish did not run the handler inline

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestBus_MultipleSubscribersEachReceive(t *testing.T) {
	b := newTestBus(t)

	var mu sync.Mutex
	counts := map[string]int{}
	for _, name := range []string{"a", "b"} {
		name := name
		b.Subscribe(QuestionsCreated{}.EventName(), func(context.Context, Event) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		})
	}

	b.Publish(context.Background(), QuestionsCreated{InterviewID: 1})

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		done := counts["a"] == 1 && counts["b"] == 1
		mu.Unlock()
		if done {
			return
		}
		select {
		case <-deadline:
			mu.Lock()
			defer mu.Unlock()
			t.Fatalf("counts = %v, want both subscribers to receive once", counts)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
