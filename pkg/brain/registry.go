package brain

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Registry maps provider identifiers to their Generators and implements
// the Invoker contract on top of them. The per-request soft timeout is
// applied here, at the call layer, so upstream orchestration never has to
// cancel in-flight work itself.
type Registry struct {
	generators map[string]Generator
	logger     *zap.Logger
}

// NewRegistry builds a registry from the given generators, keyed by name.
func NewRegistry(logger *zap.Logger, generators ...Generator) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[string]Generator, len(generators))
	for _, g := range generators {
		m[g.Name()] = g
	}
	return &Registry{generators: m, logger: logger}
}

// Register adds or replaces a generator.
func (r *Registry) Register(g Generator) {
	r.generators[g.Name()] = g
}

// Invoke dispatches the request to the provider's generator.
func (r *Registry) Invoke(ctx context.Context, req Request) (*Response, error) {
	gen, ok := r.generators[req.Provider]
	if !ok {
		return nil, &BrainError{Status: 404, Err: fmt.Errorf("no generator for provider %q", req.Provider)}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := gen.Generate(ctx, req.Model, req.Prompt)
	if err != nil {
		r.logger.Debug("brain call failed",
			zap.String("provider", req.Provider),
			zap.String("model", req.Model),
			zap.Error(err))
		return nil, err
	}
	return resp, nil
}
