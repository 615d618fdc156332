// Package mock provides a test double for the questiongen.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxhire/voxhire/pkg/provider/questiongen"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the Request passed to Generate.
	Req questiongen.Request
}

// Provider is a mock implementation of questiongen.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Questions is returned by Generate on success.
	Questions []questiongen.Question

	// Err, if non-nil, is returned as the error from Generate.
	Err error

	// --- Call records ---

	// GenerateCalls records every call to Generate in order.
	GenerateCalls []GenerateCall
}

// Generate records the call and returns the configured response.
func (p *Provider) Generate(ctx context.Context, req questiongen.Request) ([]questiongen.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GenerateCalls = append(p.GenerateCalls, GenerateCall{Ctx: ctx, Req: req})
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]questiongen.Question, len(p.Questions))
	copy(out, p.Questions)
	return out, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GenerateCalls = nil
}

// Ensure Provider implements questiongen.Provider at compile time.
var _ questiongen.Provider = (*Provider)(nil)
