// Package resilience wraps backend calls with retry-with-backoff and
// per-key circuit breakers. It is the only layer allowed to surface an
// error to its caller, and only after exhausting its own recovery paths.
package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned when a call is rejected without being
// attempted because the breaker is open.
type ErrCircuitOpen struct{ Key string }

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for %s", e.Key)
}

// BreakerOptions tune a circuit breaker.
type BreakerOptions struct {
	// FailureThreshold is the consecutive failure count that opens the
	// circuit.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before the next call is
	// allowed through as a half-open trial.
	Cooldown time.Duration
}

const (
	defaultFailureThreshold = 5
	defaultCooldown         = 60 * time.Second
)

// CircuitBreaker protects one external dependency.
//
// State machine:
//   - closed: calls pass through; each failure increments a counter;
//     reaching the threshold opens the circuit.
//   - open: calls rejected immediately; once the cooldown has elapsed since
//     the last failure the next call transitions to half-open before being
//     attempted. The transition is checked lazily on call, there is no
//     background timer.
//   - half-open: one trial call goes through; success resets to closed,
//     failure returns to open with the count incremented.
type CircuitBreaker struct {
	key  string
	opts BreakerOptions

	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// NewCircuitBreaker creates a breaker for the given key.
func NewCircuitBreaker(key string, opts BreakerOptions) *CircuitBreaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = defaultFailureThreshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	return &CircuitBreaker{
		key:   key,
		opts:  opts,
		state: StateClosed,
		now:   time.Now,
	}
}

// Execute runs fn under breaker protection. When the circuit is open the
// function is not invoked and *ErrCircuitOpen is returned.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// allow decides whether a call may proceed, applying the lazy
// open → half-open transition.
func (b *CircuitBreaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if b.now().Sub(b.lastFailureTime) >= b.opts.Cooldown {
			b.state = StateHalfOpen
		} else {
			return &ErrCircuitOpen{Key: b.key}
		}
	}
	return nil
}

func (b *CircuitBreaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.lastFailureTime = time.Time{}
	b.state = StateClosed
}

func (b *CircuitBreaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailureTime = b.now()
	if b.state == StateHalfOpen || b.failureCount >= b.opts.FailureThreshold {
		b.state = StateOpen
	}
}

// State reports the current state without applying transitions.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount reports the current consecutive failure count.
func (b *CircuitBreaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// BreakerRegistry holds one breaker per key, created lazily on first use
// and kept for the process lifetime.
type BreakerRegistry struct {
	mu       sync.Mutex
	opts     BreakerOptions
	breakers map[string]*CircuitBreaker
}

// NewBreakerRegistry creates a registry whose breakers share opts.
func NewBreakerRegistry(opts BreakerOptions) *BreakerRegistry {
	return &BreakerRegistry{opts: opts, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for key, creating it on first use.
func (r *BreakerRegistry) Get(key string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[key]
	if !ok {
		b = NewCircuitBreaker(key, r.opts)
		r.breakers[key] = b
	}
	return b
}
