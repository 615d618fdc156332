package notify

import (
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatal("channel closed while expecting an event")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return Event{}
}

func assertClosed(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel, got event %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestHub_AvatarReadyDelivered(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.AvatarReady(1, 42, "https://blob.example/q42?sig=abc")

	evt := recv(t, ch)
	if evt.Kind != KindAvatarReady {
		t.Errorf("Kind = %q, want %q", evt.Kind, KindAvatarReady)
	}
	if evt.QuestionID != 42 {
		t.Errorf("QuestionID = %d, want 42", evt.QuestionID)
	}
	if evt.PresignedURL != "https://blob.example/q42?sig=abc" {
		t.Errorf("PresignedURL = %q, want the presigned url", evt.PresignedURL)
	}
}

func TestHub_EventsScopedToInterview(t *testing.T) {
	h := NewHub()
	one, cancelOne := h.Subscribe(1)
	defer cancelOne()
	two, cancelTwo := h.Subscribe(2)
	defer cancelTwo()

	h.AvatarFailed(1, 7)

	evt := recv(t, one)
	if evt.Kind != KindAvatarFailed || evt.QuestionID != 7 {
		t.Errorf("interview 1 got %+v, want avatar-failed for question 7", evt)
	}

	select {
	case evt := <-two:
		t.Errorf("interview 2 received %+v, want nothing", evt)
	default:
	}
}

func TestHub_MultipleSubscribersEachReceive(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe(1)
	defer cancelA()
	b, cancelB := h.Subscribe(1)
	defer cancelB()

	h.AvatarReady(1, 3, "u")

	if evt := recv(t, a); evt.QuestionID != 3 {
		t.Errorf("subscriber a got %+v", evt)
	}
	if evt := recv(t, b); evt.QuestionID != 3 {
		t.Errorf("subscriber b got %+v", evt)
	}
}

func TestHub_InterviewReadyIsTerminal(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.InterviewReady(1)

	if evt := recv(t, ch); evt.Kind != KindInterviewReady {
		t.Errorf("Kind = %q, want %q", evt.Kind, KindInterviewReady)
	}
	assertClosed(t, ch)

	if n := h.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount() = %d after terminal event, want 0", n)
	}

	// Events after the terminal one go nowhere and must not panic.
	h.AvatarReady(1, 9, "late")
}

func TestHub_CancelAfterTerminalIsSafe(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(1)

	h.InterviewReady(1)
	recv(t, ch)
	assertClosed(t, ch)

	cancel()
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	h := NewHub()
	stays, cancelStays := h.Subscribe(1)
	defer cancelStays()
	leaves, cancelLeaves := h.Subscribe(1)

	cancelLeaves()
	assertClosed(t, leaves)

	h.AvatarReady(1, 5, "u")
	if evt := recv(t, stays); evt.QuestionID != 5 {
		t.Errorf("remaining subscriber got %+v", evt)
	}
}

func TestHub_SlowSubscriberLosesEventsNotTheHub(t *testing.T) {
	h := NewHub(WithBufferSize(1))
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.AvatarReady(1, 1, "first")
	h.AvatarReady(1, 2, "second") // buffer full, dropped

	if evt := recv(t, ch); evt.QuestionID != 1 {
		t.Errorf("got %+v, want the first event", evt)
	}

	select {
	case evt := <-ch:
		t.Errorf("received %+v, want the second event dropped", evt)
	default:
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := NewHub()

	// Nothing listening; must not block or panic.
	h.AvatarReady(99, 1, "u")
	h.AvatarFailed(99, 2)
	h.InterviewReady(99)
}
