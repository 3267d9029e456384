package resilience

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/brain"
	"github.com/zen-systems/synapse/pkg/obs"
)

const (
	maxRetries  = 3
	backoffBase = time.Second
)

var retryableHTTP = map[int]bool{429: true, 503: true, 504: true}
var permanentHTTP = map[int]bool{400: true, 401: true, 403: true, 404: true}

// IsRetryable classifies an error as transient or final.
//
// Retryable: network transport errors (connection reset, timeout, DNS
// failure, broken pipe), HTTP 429/503/504, and failover errors whose reason
// is unknown. Permanent: HTTP 400/401/403/404, and failover errors raised
// for timeouts, auth, or rate limits, which the call layer has already
// handled internally. Anything unrecognized is not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var failover *brain.FailoverError
	if errors.As(err, &failover) {
		return failover.Reason == brain.FailoverUnknown
	}

	var brainErr *brain.BrainError
	if errors.As(err, &brainErr) {
		if brainErr.Temporary {
			return true
		}
		if permanentHTTP[brainErr.Status] {
			return false
		}
		return retryableHTTP[brainErr.Status]
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// Call names an operation for logging and optionally binds it to a
// circuit breaker key.
type Call struct {
	Name       string
	CircuitKey string
}

// Retryer applies the shared retry and breaker policy to operations.
type Retryer struct {
	breakers *BreakerRegistry
	store    *obs.Store
	logger   *zap.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryer creates a retryer. store may be nil when exhaustion records
// are not wanted (tests).
func NewRetryer(store *obs.Store, logger *zap.Logger) *Retryer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retryer{
		breakers: NewBreakerRegistry(BreakerOptions{}),
		store:    store,
		logger:   logger,
		sleep:    sleepWithContext,
	}
}

// Breaker exposes the breaker for a key, for monitoring.
func (r *Retryer) Breaker(key string) *CircuitBreaker {
	return r.breakers.Get(key)
}

// Do runs op with retry, backoff, and breaker protection.
//
// A permanent error aborts immediately without consuming a retry slot; it
// still passes through the breaker's failure accounting. A transient error
// is retried up to 3 times with 1s, 2s, 4s waits. After exhaustion the
// final failure is recorded to observability and the last error returned.
func Do[T any](ctx context.Context, r *Retryer, c Call, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var breaker *CircuitBreaker
	if c.CircuitKey != "" {
		breaker = r.breakers.Get(c.CircuitKey)
	}

	run := func(ctx context.Context) (T, error) {
		if breaker == nil {
			return op(ctx)
		}
		var result T
		err := breaker.Execute(ctx, func(ctx context.Context) error {
			var opErr error
			result, opErr = op(ctx)
			return opErr
		})
		return result, err
	}

	var lastErr error
	attempt := 0
	for attempt <= maxRetries {
		result, err := run(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		attempt++

		var open *ErrCircuitOpen
		if errors.As(err, &open) {
			return zero, err
		}
		if !IsRetryable(err) {
			return zero, err
		}
		if attempt > maxRetries {
			break
		}

		delay := backoffBase << (attempt - 1)
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}

	r.logger.Warn("retries exhausted",
		zap.String("name", c.Name),
		zap.Int("retries", maxRetries),
		zap.Error(lastErr))
	if r.store != nil {
		r.store.Emit(obs.Event{
			Category: "integration",
			Action:   "failure",
			Metadata: map[string]any{
				"integration": c.Name,
				"error":       lastErr.Error(),
				"retry_count": maxRetries,
			},
		})
	}
	return zero, lastErr
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
