package brain

import (
	"fmt"
)

// BrainError wraps provider errors with HTTP status metadata so the
// resilience layer can classify them.
type BrainError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *BrainError) Error() string {
	if e == nil {
		return "brain error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("brain error (status=%d)", e.Status)
}

func (e *BrainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailoverReason tags why a runner-level failover was raised.
type FailoverReason string

const (
	FailoverTimeout   FailoverReason = "timeout"
	FailoverAuth      FailoverReason = "auth"
	FailoverRateLimit FailoverReason = "rate_limit"
	FailoverNetwork   FailoverReason = "network"
	FailoverUnknown   FailoverReason = "unknown"
)

// FailoverError is raised by a call layer that has already exhausted its
// own internal handling. Only the unknown reason is worth retrying again
// from outside; timeouts, auth and rate-limit failures are final.
type FailoverError struct {
	Reason FailoverReason
	Err    error
}

func (e *FailoverError) Error() string {
	if e == nil {
		return "failover error"
	}
	if e.Err != nil {
		return fmt.Sprintf("failover (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("failover (%s)", e.Reason)
}

func (e *FailoverError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
