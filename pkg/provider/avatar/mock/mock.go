// Package mock provides a test double for the avatar.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxhire/voxhire/pkg/provider/avatar"
)

// CreateTalkCall records a single invocation of CreateTalk.
type CreateTalkCall struct {
	// Ctx is the context passed to CreateTalk.
	Ctx context.Context
	// Req is the TalkRequest passed to CreateTalk.
	Req avatar.TalkRequest
}

// PollTalkCall records a single invocation of PollTalk.
type PollTalkCall struct {
	// Ctx is the context passed to PollTalk.
	Ctx context.Context
	// ID is the job ID passed to PollTalk.
	ID string
}

// Provider is a mock implementation of avatar.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// CreateTalkID is returned by CreateTalk on success.
	CreateTalkID string

	// CreateTalkErr, if non-nil, is returned as the error from CreateTalk.
	CreateTalkErr error

	// PollResults is the sequence of snapshots PollTalk walks through, one
	// per call. After the sequence is exhausted the last element repeats.
	PollResults []avatar.Talk

	// PollErr, if non-nil, is returned as the error from PollTalk.
	PollErr error

	// CreateTalkFunc, if set, overrides CreateTalkID and CreateTalkErr.
	CreateTalkFunc func(ctx context.Context, req avatar.TalkRequest) (string, error)

	// --- Call records ---

	// CreateTalkCalls records every call to CreateTalk in order.
	CreateTalkCalls []CreateTalkCall

	// PollTalkCalls records every call to PollTalk in order.
	PollTalkCalls []PollTalkCall

	pollIdx int
}

// CreateTalk records the call and returns the configured job ID.
func (p *Provider) CreateTalk(ctx context.Context, req avatar.TalkRequest) (string, error) {
	p.mu.Lock()
	p.CreateTalkCalls = append(p.CreateTalkCalls, CreateTalkCall{Ctx: ctx, Req: req})
	fn := p.CreateTalkFunc
	id, err := p.CreateTalkID, p.CreateTalkErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return id, err
}

// PollTalk records the call and returns the next element of PollResults.
func (p *Provider) PollTalk(ctx context.Context, id string) (avatar.Talk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PollTalkCalls = append(p.PollTalkCalls, PollTalkCall{Ctx: ctx, ID: id})
	if p.PollErr != nil {
		return avatar.Talk{}, p.PollErr
	}
	if len(p.PollResults) == 0 {
		return avatar.Talk{ID: id, Status: avatar.TalkProcessing}, nil
	}
	talk := p.PollResults[p.pollIdx]
	if p.pollIdx < len(p.PollResults)-1 {
		p.pollIdx++
	}
	if talk.ID == "" {
		talk.ID = id
	}
	return talk, nil
}

// Reset clears all recorded calls and rewinds the poll sequence. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CreateTalkCalls = nil
	p.PollTalkCalls = nil
	p.pollIdx = 0
}

// Ensure Provider implements avatar.Provider at compile time.
var _ avatar.Provider = (*Provider)(nil)
