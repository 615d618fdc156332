// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxhire/voxhire/pkg/provider/stt"
)

// SubmitCall records a single invocation of Submit.
type SubmitCall struct {
	// Ctx is the context passed to Submit.
	Ctx context.Context
	// AudioURL is the audio URL passed to Submit.
	AudioURL string
	// LanguageCode is the language code passed to Submit.
	LanguageCode string
}

// PollCall records a single invocation of Poll.
type PollCall struct {
	// Ctx is the context passed to Poll.
	Ctx context.Context
	// ID is the job ID passed to Poll.
	ID string
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SubmitID is returned by Submit on success.
	SubmitID string

	// SubmitErr, if non-nil, is returned as the error from Submit.
	SubmitErr error

	// PollResults is the sequence of snapshots Poll walks through, one per
	// call. After the sequence is exhausted the last element repeats.
	PollResults []stt.Transcript

	// PollErr, if non-nil, is returned as the error from Poll.
	PollErr error

	// --- Call records ---

	// SubmitCalls records every call to Submit in order.
	SubmitCalls []SubmitCall

	// PollCalls records every call to Poll in order.
	PollCalls []PollCall

	pollIdx int
}

// Submit records the call and returns the configured job ID.
func (p *Provider) Submit(ctx context.Context, audioURL, languageCode string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SubmitCalls = append(p.SubmitCalls, SubmitCall{Ctx: ctx, AudioURL: audioURL, LanguageCode: languageCode})
	if p.SubmitErr != nil {
		return "", p.SubmitErr
	}
	return p.SubmitID, nil
}

// Poll records the call and returns the next element of PollResults.
func (p *Provider) Poll(ctx context.Context, id string) (stt.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PollCalls = append(p.PollCalls, PollCall{Ctx: ctx, ID: id})
	if p.PollErr != nil {
		return stt.Transcript{}, p.PollErr
	}
	if len(p.PollResults) == 0 {
		return stt.Transcript{ID: id, Status: stt.TranscriptProcessing}, nil
	}
	tr := p.PollResults[p.pollIdx]
	if p.pollIdx < len(p.PollResults)-1 {
		p.pollIdx++
	}
	if tr.ID == "" {
		tr.ID = id
	}
	return tr, nil
}

// Reset clears all recorded calls and rewinds the poll sequence. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SubmitCalls = nil
	p.PollCalls = nil
	p.pollIdx = 0
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
