package engine

import (
	"math/rand/v2"
	"time"
)

// LoopConfig holds the control loop limits.
type LoopConfig struct {
	StructuredRetries int // JSON repair attempts per structured call (default: 3)
	CompressAfter     int // Compress history once it holds more than this many entries (default: 5)
	StepToolLimit     int // Tools offered to the model for one step (default: 5)
	PlanToolLimit     int // Tool names offered while planning (default: 10)
	ForceReplanAfter  int // Retry streak at which the replan directive is added (default: 3)
	MaxForcedReplans  int // Ignored replan directives before a step is exhausted (default: 3)
	MaxIterations     int // Execute/reflect rounds before the run is abandoned (default: 100)
	RecallLimit       int // Long-term memories included while planning (default: 3)
}

// DefaultLoopConfig returns the limits the loop was designed around.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		StructuredRetries: 3,
		CompressAfter:     5,
		StepToolLimit:     5,
		PlanToolLimit:     10,
		ForceReplanAfter:  3,
		MaxForcedReplans:  3,
		MaxIterations:     100,
		RecallLimit:       3,
	}
}

// RetryPolicy bounds transport retries for one generation call.
type RetryPolicy struct {
	MaxRetries   int           // Extra calls after the first failure (0 = none)
	InitialDelay time.Duration // Wait before the first retry; doubles each time
	MaxDelay     time.Duration // Cap for backoff and Retry-After hints
	Jitter       bool          // Add up to 20% random wait
}

// DefaultLLMRetryPolicy returns the transport retry policy for generation calls.
func DefaultLLMRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Jitter:       true,
	}
}

// backoff returns the wait before retry n (0-based). A Retry-After hint on
// err replaces exponential backoff.
func (p RetryPolicy) backoff(n int, err error) time.Duration {
	wait := retryAfterHint(err)
	if wait == 0 {
		wait = p.InitialDelay << n
		if p.Jitter && wait > 0 {
			wait += time.Duration(rand.Int64N(int64(wait)/5 + 1))
		}
	}
	if p.MaxDelay > 0 && (wait > p.MaxDelay || wait < 0) {
		wait = p.MaxDelay
	}
	return wait
}
