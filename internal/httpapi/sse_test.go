package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voxhire/voxhire/internal/domain"
	"github.com/voxhire/voxhire/internal/health"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}

// openStream connects to the events endpoint of a live test server and
// returns the response with its streaming body.
func openStream(t *testing.T, ts *httptest.Server, interviewID, userID int64) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("%s/api/interviews/%d/events", ts.URL, interviewID), nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken(t, testSecret, userID))

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestEvents_StreamsUntilInterviewReady(t *testing.T) {
	h := newHarness()
	iv, qs := h.seedInterview(t, 7, domain.StatusGeneratingVideos, 2)

	ts := httptest.NewServer(h.handler)
	t.Cleanup(ts.Close)

	resp := openStream(t, ts, iv.ID, 7)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q, want text/event-stream", ct)
	}

	waitFor(t, func() bool { return h.hub.SubscriberCount() == 1 })
	h.hub.AvatarReady(iv.ID, qs[0].ID, "https://cdn.test/q1.mp4")
	h.hub.AvatarFailed(iv.ID, qs[1].ID)
	h.hub.InterviewReady(iv.ID)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}

	want := fmt.Sprintf(
		"event: avatar-ready\ndata: {\"questionId\":%d,\"presignedUrl\":\"https://cdn.test/q1.mp4\"}\n\n"+
			"event: avatar-failed\ndata: {\"questionId\":%d}\n\n"+
			"event: interview-ready\ndata: {}\n\n",
		qs[0].ID, qs[1].ID)
	if string(data) != want {
		t.Errorf("stream = %q\nwant %q", data, want)
	}
}

func TestEvents_ImmediateReadyWhenAlreadyOpen(t *testing.T) {
	h := newHarness()
	iv, _ := h.seedInterview(t, 7, domain.StatusInProgress, 1)

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/api/interviews/%d/events", iv.ID), 7, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	want := "event: interview-ready\ndata: {}\n\n"
	if rec.Body.String() != want {
		t.Errorf("stream = %q, want %q", rec.Body.String(), want)
	}
}

func TestEvents_ForeignInterviewIs404(t *testing.T) {
	h := newHarness()
	iv, _ := h.seedInterview(t, 7, domain.StatusGeneratingVideos, 1)

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/api/interviews/%d/events", iv.ID), 8, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if h.hub.SubscriberCount() != 0 {
		t.Errorf("rejected stream left %d subscriptions behind", h.hub.SubscriberCount())
	}
}

func TestEvents_IdleTimeoutEndsStream(t *testing.T) {
	h := newHarness()
	iv, _ := h.seedInterview(t, 7, domain.StatusGeneratingVideos, 1)

	srv := New(h.svc, h.hub, health.New(),
		Config{JWTSecret: testSecret, SSEIdleTimeout: 50 * time.Millisecond})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	resp := openStream(t, ts, iv.ID, 7)
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("idle stream produced %q, want nothing", data)
	}
	waitFor(t, func() bool { return h.hub.SubscriberCount() == 0 })
}

func TestEvents_ShutdownEndsStream(t *testing.T) {
	h := newHarness()
	iv, _ := h.seedInterview(t, 7, domain.StatusGeneratingVideos, 1)

	srv := New(h.svc, h.hub, health.New(), Config{JWTSecret: testSecret})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	resp := openStream(t, ts, iv.ID, 7)
	waitFor(t, func() bool { return h.hub.SubscriberCount() == 1 })

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("closing stream produced %q, want nothing", data)
	}
}
