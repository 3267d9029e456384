package resilience

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zen-systems/synapse/pkg/brain"
)

func testRetryer() (*Retryer, *[]time.Duration) {
	r := NewRetryer(nil, zap.NewNop())
	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

func TestIsRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conn reset", syscall.ECONNRESET, true},
		{"broken pipe", syscall.EPIPE, true},
		{"deadline", context.DeadlineExceeded, true},
		{"http 429", &brain.BrainError{Status: 429}, true},
		{"http 503", &brain.BrainError{Status: 503}, true},
		{"http 504", &brain.BrainError{Status: 504}, true},
		{"http 400", &brain.BrainError{Status: 400}, false},
		{"http 401", &brain.BrainError{Status: 401}, false},
		{"http 404", &brain.BrainError{Status: 404}, false},
		{"http 500", &brain.BrainError{Status: 500}, false},
		{"temporary flag", &brain.BrainError{Status: 500, Temporary: true}, true},
		{"failover unknown", &brain.FailoverError{Reason: brain.FailoverUnknown}, true},
		{"failover timeout", &brain.FailoverError{Reason: brain.FailoverTimeout}, false},
		{"failover auth", &brain.FailoverError{Reason: brain.FailoverAuth}, false},
		{"failover rate limit", &brain.FailoverError{Reason: brain.FailoverRateLimit}, false},
		{"unrecognized", errors.New("mystery"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPermanentErrorSingleInvocation(t *testing.T) {
	r, waits := testRetryer()
	calls := 0
	_, err := Do(context.Background(), r, Call{Name: "test"}, func(context.Context) (string, error) {
		calls++
		return "", &brain.BrainError{Status: 404}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 invocation, got %d", calls)
	}
	if len(*waits) != 0 {
		t.Fatalf("expected no backoff waits, got %v", *waits)
	}
}

func TestRetryableErrorFourInvocations(t *testing.T) {
	r, waits := testRetryer()
	calls := 0
	_, err := Do(context.Background(), r, Call{Name: "test"}, func(context.Context) (string, error) {
		calls++
		return "", syscall.ECONNRESET
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != 4 {
		t.Fatalf("expected 4 invocations (1 + 3 retries), got %d", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, *waits)
	}
	for i, w := range want {
		if (*waits)[i] != w {
			t.Fatalf("wait %d: expected %v, got %v", i, w, (*waits)[i])
		}
	}
}

func TestEventualSuccess(t *testing.T) {
	r, _ := testRetryer()
	calls := 0
	result, err := Do(context.Background(), r, Call{Name: "test"}, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", syscall.ECONNRESET
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != "ok" || calls != 3 {
		t.Fatalf("expected success on call 3, got result=%q calls=%d", result, calls)
	}
}

func TestCircuitOpenRejectsWithoutInvoking(t *testing.T) {
	r, _ := testRetryer()
	boom := &brain.BrainError{Status: 404}

	// Five permanent failures trip the breaker without retry churn.
	for i := 0; i < 5; i++ {
		_, _ = Do(context.Background(), r, Call{Name: "t", CircuitKey: "backend"}, func(context.Context) (int, error) {
			return 0, boom
		})
	}
	if state := r.Breaker("backend").State(); state != StateOpen {
		t.Fatalf("expected open breaker, got %s", state)
	}

	calls := 0
	_, err := Do(context.Background(), r, Call{Name: "t", CircuitKey: "backend"}, func(context.Context) (int, error) {
		calls++
		return 0, nil
	})
	var open *ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected circuit-open rejection, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("wrapped function must not run while open, ran %d times", calls)
	}
}

func TestPermanentErrorCountsTowardBreaker(t *testing.T) {
	r, _ := testRetryer()
	_, _ = Do(context.Background(), r, Call{Name: "t", CircuitKey: "k"}, func(context.Context) (int, error) {
		return 0, &brain.BrainError{Status: 401}
	})
	if count := r.Breaker("k").FailureCount(); count != 1 {
		t.Fatalf("permanent error should be counted by the breaker, count=%d", count)
	}
}
