package engine

import (
	"math/rand"
	"time"
)

// NodePolicy configures optional per-node Timeout and RetryPolicy,
// adapted from the teacher's policy.go/timeout.go. Opt-in only: a node
// id/definition id with no registered NodePolicy gets spec.md §7's
// plain propagation policy, no retry.
type NodePolicy struct {
	Timeout     time.Duration
	RetryPolicy *RetryPolicy
}

// RetryPolicy is exponential backoff with jitter over a retryable-error
// predicate, grounded on the teacher's RetryPolicy/computeBackoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// computeBackoff mirrors the teacher's formula: min(base*2^attempt,
// maxDelay) + jitter(0, base).
func computeBackoff(attempt int, base, maxDelay time.Duration, rng *rand.Rand) time.Duration {
	delay := base * (1 << attempt)
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	var jitter time.Duration
	if base > 0 {
		jitter = time.Duration(rng.Int63n(int64(base)))
	}
	return delay + jitter
}

// shouldRetry reports whether attempt (0-based, the attempt that just
// failed with err) should be followed by another.
func (p *RetryPolicy) shouldRetry(attempt int, err error) bool {
	if p == nil || attempt+1 >= p.MaxAttempts {
		return false
	}
	if p.Retryable == nil {
		return false
	}
	return p.Retryable(err)
}
