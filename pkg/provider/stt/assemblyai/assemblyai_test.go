package assemblyai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/voxhire/voxhire/pkg/provider"
	"github.com/voxhire/voxhire/pkg/provider/stt"
)

func mustNew(t *testing.T, apiKey string, opts ...Option) *Provider {
	t.Helper()
	p, err := New(apiKey, opts...)
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}
	return p
}

// ---- Provider creation ----

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Fatal("expected error for empty API key, got nil")
	}
}

// ---- Submit ----

func TestSubmit_Success(t *testing.T) {
	var (
		reqMu        sync.Mutex
		receivedAuth string
		receivedReq  submitRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/transcript" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		reqMu.Lock()
		receivedAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&receivedReq)
		reqMu.Unlock()
		_, _ = w.Write([]byte(`{"id":"trx_42","status":"queued"}`))
	}))
	defer srv.Close()

	p := mustNew(t, "aai-key", WithBaseURL(srv.URL))
	id, err := p.Submit(context.Background(), "https://blob.test/answer.webm?sig=abc", "en")
	if err != nil {
		t.Fatalf("Submit: unexpected error: %v", err)
	}
	if id != "trx_42" {
		t.Errorf("id = %q, want %q", id, "trx_42")
	}

	reqMu.Lock()
	defer reqMu.Unlock()
	if receivedAuth != "aai-key" {
		t.Errorf("Authorization = %q, want the raw API key", receivedAuth)
	}
	if receivedReq.AudioURL != "https://blob.test/answer.webm?sig=abc" {
		t.Errorf("audio_url = %q, want the presigned URL", receivedReq.AudioURL)
	}
	if receivedReq.LanguageCode != "en" {
		t.Errorf("language_code = %q, want %q", receivedReq.LanguageCode, "en")
	}
}

func TestSubmit_EmptyAudioURL(t *testing.T) {
	p := mustNew(t, "key")
	_, err := p.Submit(context.Background(), "", "en")
	if err == nil {
		t.Fatal("expected error for empty audio URL, got nil")
	}
}

func TestSubmit_MissingJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	p := mustNew(t, "key", WithBaseURL(srv.URL))
	_, err := p.Submit(context.Background(), "https://blob.test/a.webm", "en")
	if err == nil {
		t.Fatal("expected error for response without job id, got nil")
	}
}

func TestSubmit_VendorStatusBecomesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := mustNew(t, "key", WithBaseURL(srv.URL))
	_, err := p.Submit(context.Background(), "https://blob.test/a.webm", "en")

	var statusErr *provider.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *provider.StatusError", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Errorf("Code = %d, want 503", statusErr.Code)
	}
	if statusErr.Target != "stt" {
		t.Errorf("Target = %q, want %q", statusErr.Target, "stt")
	}
}

func TestSubmit_ConnectionFailureBecomesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := mustNew(t, "key", WithBaseURL(srv.URL))
	_, err := p.Submit(context.Background(), "https://blob.test/a.webm", "en")

	var transportErr *provider.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %v, want *provider.TransportError", err)
	}
}

// ---- Poll ----

func TestPoll_Completed(t *testing.T) {
	var receivedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"trx_42","status":"completed","text":"I rebuilt the deployment pipeline","confidence":0.87}`))
	}))
	defer srv.Close()

	p := mustNew(t, "key", WithBaseURL(srv.URL))
	tr, err := p.Poll(context.Background(), "trx_42")
	if err != nil {
		t.Fatalf("Poll: unexpected error: %v", err)
	}
	if receivedPath != "/v2/transcript/trx_42" {
		t.Errorf("path = %q, want /v2/transcript/trx_42", receivedPath)
	}
	if tr.Status != stt.TranscriptCompleted {
		t.Errorf("status = %q, want completed", tr.Status)
	}
	if tr.Text == "" {
		t.Error("expected transcription text to be set")
	}
	if tr.Confidence != 0.87 {
		t.Errorf("confidence = %v, want 0.87", tr.Confidence)
	}
}

func TestPoll_StatusMapping(t *testing.T) {
	tests := []struct {
		vendor string
		want   stt.TranscriptStatus
	}{
		{"queued", stt.TranscriptQueued},
		{"processing", stt.TranscriptProcessing},
		{"completed", stt.TranscriptCompleted},
		{"error", stt.TranscriptError},
		{"something_new", stt.TranscriptProcessing},
	}
	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"id": "trx_1", "status": tt.vendor})
			}))
			defer srv.Close()

			p := mustNew(t, "key", WithBaseURL(srv.URL))
			tr, err := p.Poll(context.Background(), "trx_1")
			if err != nil {
				t.Fatalf("Poll: unexpected error: %v", err)
			}
			if tr.Status != tt.want {
				t.Errorf("status %q mapped to %q, want %q", tt.vendor, tr.Status, tt.want)
			}
		})
	}
}

func TestPoll_NullFieldsDecodeCleanly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"trx_1","status":"queued","text":null,"confidence":null,"error":null}`))
	}))
	defer srv.Close()

	p := mustNew(t, "key", WithBaseURL(srv.URL))
	tr, err := p.Poll(context.Background(), "trx_1")
	if err != nil {
		t.Fatalf("Poll: unexpected error: %v", err)
	}
	if tr.Text != "" || tr.Confidence != 0 || tr.Error != "" {
		t.Errorf("null fields should decode to zero values, got %+v", tr)
	}
}

func TestPoll_ErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"trx_3","status":"error","error":"audio too short"}`))
	}))
	defer srv.Close()

	p := mustNew(t, "key", WithBaseURL(srv.URL))
	tr, err := p.Poll(context.Background(), "trx_3")
	if err != nil {
		t.Fatalf("Poll: unexpected error: %v", err)
	}
	if tr.Status != stt.TranscriptError {
		t.Errorf("status = %q, want error", tr.Status)
	}
	if tr.Error != "audio too short" {
		t.Errorf("error detail = %q, want the vendor message", tr.Error)
	}
}

func TestPoll_EmptyID(t *testing.T) {
	p := mustNew(t, "key")
	_, err := p.Poll(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty transcript id, got nil")
	}
}
