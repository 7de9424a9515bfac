package resilience

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the delay between gateway attempts
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration // Initial delay
	MaxDelay   time.Duration // Cap applied before jitter
	Multiplier float64       // Growth per attempt, typically 2.0
	Jitter     float64       // Fraction of the delay, 0.1 gives ±10%
}

// GatewayBackoff returns the delay schedule between entry point attempts.
// The gateway failover loop is sequential and capped at nine attempts, so the
// delays stay short:
//   - Attempt 0: ~50ms
//   - Attempt 1: ~100ms
//   - Attempt 2: ~200ms
//   - Attempt 3+: ~400ms to 1s (capped)
func GatewayBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// NextDelay calculates the delay for the given attempt number (0-indexed):
// BaseDelay * Multiplier^attempt capped at MaxDelay, then ± jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return eb.BaseDelay
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	jitterAmount := delay * eb.Jitter
	jitter := (rand.Float64()*2 - 1) * jitterAmount

	finalDelay := time.Duration(delay + jitter)
	if finalDelay < 0 {
		finalDelay = eb.BaseDelay
	}

	return finalDelay
}

// FixedBackoff waits the same delay before every attempt. A zero Delay sends
// attempts back to back.
type FixedBackoff struct {
	Delay time.Duration
}

// NextDelay returns the fixed delay regardless of attempt number
func (fb *FixedBackoff) NextDelay(attempt int) time.Duration {
	return fb.Delay
}

// NewBackoff picks the strategy named in configuration: "exponential",
// "fixed" (using delay) or "none"
func NewBackoff(kind string, delay time.Duration) BackoffStrategy {
	switch kind {
	case "exponential":
		return GatewayBackoff()
	case "fixed":
		return &FixedBackoff{Delay: delay}
	default:
		return nil
	}
}
