// Package did provides a D-ID-backed avatar video provider using the talks
// HTTP API. It implements the avatar.Provider interface.
package did

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxhire/voxhire/pkg/provider"
	"github.com/voxhire/voxhire/pkg/provider/avatar"
)

const (
	defaultBaseURL = "https://api.d-id.com"
	defaultTimeout = 30 * time.Second

	// target tags errors for the resilience layer.
	target = "avatar"

	// maxErrBody caps the vendor response excerpt carried inside errors.
	maxErrBody = 512
)

// Option is a functional option for configuring the D-ID Provider.
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

// Provider implements avatar.Provider backed by the D-ID talks API.
type Provider struct {
	authHeader string
	baseURL    string
	httpClient *http.Client
}

// New creates a new D-ID Provider. apiKey is the "username:password" API key
// from the D-ID dashboard; it is sent Basic-encoded on every request.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("did: apiKey must not be empty")
	}
	p := &Provider{
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey)),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- wire types ----

// createTalkRequest is the JSON body for POST /talks.
type createTalkRequest struct {
	Script    talkScript `json:"script"`
	SourceURL string     `json:"source_url"`
	Config    talkConfig `json:"config"`
}

type talkScript struct {
	Type     string `json:"type"`
	AudioURL string `json:"audio_url"`
}

type talkConfig struct {
	Fluent   bool    `json:"fluent"`
	PadAudio float64 `json:"pad_audio"`
}

// talkResponse is the JSON returned by both POST /talks and GET /talks/{id}.
type talkResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
	Error     struct {
		Kind        string `json:"kind"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateTalk submits a generation job via POST /talks and returns the job ID.
func (p *Provider) CreateTalk(ctx context.Context, req avatar.TalkRequest) (string, error) {
	if req.AudioURL == "" {
		return "", errors.New("did: req.AudioURL must not be empty")
	}
	if req.PortraitURL == "" {
		return "", errors.New("did: req.PortraitURL must not be empty")
	}

	body, err := json.Marshal(createTalkRequest{
		Script:    talkScript{Type: "audio", AudioURL: req.AudioURL},
		SourceURL: req.PortraitURL,
		Config:    talkConfig{Fluent: req.Fluent, PadAudio: req.PadAudioSeconds},
	})
	if err != nil {
		return "", fmt.Errorf("did: encode request: %w", err)
	}

	resp, err := p.roundTrip(ctx, http.MethodPost, p.baseURL+"/talks", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("did: create talk response missing job id")
	}
	return resp.ID, nil
}

// PollTalk fetches job state via GET /talks/{id}.
func (p *Provider) PollTalk(ctx context.Context, id string) (avatar.Talk, error) {
	if id == "" {
		return avatar.Talk{}, errors.New("did: talk id must not be empty")
	}

	resp, err := p.roundTrip(ctx, http.MethodGet, p.baseURL+"/talks/"+id, nil)
	if err != nil {
		return avatar.Talk{}, err
	}

	talk := avatar.Talk{
		ID:        resp.ID,
		Status:    mapStatus(resp.Status),
		ResultURL: resp.ResultURL,
	}
	if resp.Error.Description != "" {
		talk.Error = resp.Error.Description
	} else if resp.Error.Kind != "" {
		talk.Error = resp.Error.Kind
	}
	if talk.Status == avatar.TalkDone && talk.ResultURL == "" {
		return avatar.Talk{}, errors.New("did: done talk has no result_url")
	}
	return talk, nil
}

// roundTrip performs one authenticated request and decodes the talk payload.
func (p *Provider) roundTrip(ctx context.Context, method, url string, body io.Reader) (*talkResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("did: build request: %w", err)
	}
	req.Header.Set("Authorization", p.authHeader)
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

	var tr talkResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("did: decode response: %w", err)
	}
	return &tr, nil
}

// mapStatus translates D-ID job states onto the capability's lifecycle.
// Unknown states count as processing: the caller's poll loop is bounded, so
// a vendor surprise degrades to a timeout instead of a spurious failure.
func mapStatus(s string) avatar.TalkStatus {
	switch s {
	case "created":
		return avatar.TalkQueued
	case "started":
		return avatar.TalkProcessing
	case "done":
		return avatar.TalkDone
	case "error", "rejected":
		return avatar.TalkError
	default:
		return avatar.TalkProcessing
	}
}

// Ensure Provider implements avatar.Provider at compile time.
var _ avatar.Provider = (*Provider)(nil)
