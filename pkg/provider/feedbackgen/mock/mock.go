// Package mock provides a test double for the feedbackgen.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxhire/voxhire/pkg/provider/feedbackgen"
)

// EvaluateCall records a single invocation of Evaluate.
type EvaluateCall struct {
	// Ctx is the context passed to Evaluate.
	Ctx context.Context
	// Req is the Request passed to Evaluate.
	Req feedbackgen.Request
}

// Provider is a mock implementation of feedbackgen.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Assessment is returned by Evaluate on success.
	Assessment feedbackgen.Assessment

	// Err, if non-nil, is returned as the error from Evaluate.
	Err error

	// --- Call records ---

	// EvaluateCalls records every call to Evaluate in order.
	EvaluateCalls []EvaluateCall
}

// Evaluate records the call and returns the configured response.
func (p *Provider) Evaluate(ctx context.Context, req feedbackgen.Request) (feedbackgen.Assessment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EvaluateCalls = append(p.EvaluateCalls, EvaluateCall{Ctx: ctx, Req: req})
	if p.Err != nil {
		return feedbackgen.Assessment{}, p.Err
	}
	return p.Assessment, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EvaluateCalls = nil
}

// Ensure Provider implements feedbackgen.Provider at compile time.
var _ feedbackgen.Provider = (*Provider)(nil)
