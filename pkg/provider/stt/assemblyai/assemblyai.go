// Package assemblyai provides an AssemblyAI-backed STT provider using the
// asynchronous transcript HTTP API. It implements the stt.Provider interface.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxhire/voxhire/pkg/provider"
	"github.com/voxhire/voxhire/pkg/provider/stt"
)

const (
	defaultBaseURL = "https://api.assemblyai.com"
	defaultTimeout = 30 * time.Second

	// target tags errors for the resilience layer.
	target = "stt"

	// maxErrBody caps the vendor response excerpt carried inside errors.
	maxErrBody = 512
)

// Option is a functional option for configuring the AssemblyAI Provider.
type Option func(*Provider)

// WithBaseURL overrides the default API base URL. Used by tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by the AssemblyAI transcript API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new AssemblyAI Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("assemblyai: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- wire types ----

// submitRequest is the JSON body for POST /v2/transcript.
type submitRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

// transcriptResponse is the JSON returned by both POST /v2/transcript and
// GET /v2/transcript/{id}. Nullable vendor fields are pointers so absent
// values decode cleanly.
type transcriptResponse struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	Text       *string  `json:"text"`
	Confidence *float64 `json:"confidence"`
	Error      *string  `json:"error"`
}

// Submit starts transcription via POST /v2/transcript and returns the job ID.
func (p *Provider) Submit(ctx context.Context, audioURL, languageCode string) (string, error) {
	if audioURL == "" {
		return "", errors.New("assemblyai: audioURL must not be empty")
	}

	body, err := json.Marshal(submitRequest{AudioURL: audioURL, LanguageCode: languageCode})
	if err != nil {
		return "", fmt.Errorf("assemblyai: encode request: %w", err)
	}

	resp, err := p.roundTrip(ctx, http.MethodPost, p.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("assemblyai: submit response missing job id")
	}
	return resp.ID, nil
}

// Poll fetches job state via GET /v2/transcript/{id}.
func (p *Provider) Poll(ctx context.Context, id string) (stt.Transcript, error) {
	if id == "" {
		return stt.Transcript{}, errors.New("assemblyai: transcript id must not be empty")
	}

	resp, err := p.roundTrip(ctx, http.MethodGet, p.baseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return stt.Transcript{}, err
	}

	tr := stt.Transcript{
		ID:     resp.ID,
		Status: mapStatus(resp.Status),
	}
	if resp.Text != nil {
		tr.Text = *resp.Text
	}
	if resp.Confidence != nil {
		tr.Confidence = *resp.Confidence
	}
	if resp.Error != nil {
		tr.Error = *resp.Error
	}
	return tr, nil
}

// roundTrip performs one authenticated request and decodes the transcript
// payload.
func (p *Provider) roundTrip(ctx context.Context, method, url string, body io.Reader) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: build request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &provider.TransportError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, &provider.StatusError{
			Target: target,
			Code:   resp.StatusCode,
			Body:   string(excerpt),
		}
	}

	var tr transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("assemblyai: decode response: %w", err)
	}
	return &tr, nil
}

// mapStatus translates AssemblyAI job states onto the capability's lifecycle.
// Unknown states count as processing: the caller's poll loop is bounded, so
// a vendor surprise degrades to a timeout instead of a spurious failure.
func mapStatus(s string) stt.TranscriptStatus {
	switch s {
	case "queued":
		return stt.TranscriptQueued
	case "processing":
		return stt.TranscriptProcessing
	case "completed":
		return stt.TranscriptCompleted
	case "error":
		return stt.TranscriptError
	default:
		return stt.TranscriptProcessing
	}
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
