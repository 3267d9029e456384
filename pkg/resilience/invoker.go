package resilience

import (
	"context"

	"github.com/zen-systems/synapse/pkg/brain"
)

// Invoker wraps a brain.Invoker so that every call in the system goes
// through the shared retry and breaker policy. The circuit key is the
// provider id: one failing backend trips one breaker.
type Invoker struct {
	next    brain.Invoker
	retryer *Retryer
}

// NewInvoker wraps next with the retryer's policy.
func NewInvoker(next brain.Invoker, retryer *Retryer) *Invoker {
	return &Invoker{next: next, retryer: retryer}
}

func (i *Invoker) Invoke(ctx context.Context, req brain.Request) (*brain.Response, error) {
	return Do(ctx, i.retryer, Call{
		Name:       "brain:" + req.Provider,
		CircuitKey: req.Provider,
	}, func(ctx context.Context) (*brain.Response, error) {
		return i.next.Invoke(ctx, req)
	})
}
