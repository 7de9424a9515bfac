package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy, outermost first:
//
//	HTTP Handler (130s)
//	  ↓
//	Gateway Transaction (120s, up to nine attempts)
//	  ↓
//	Gateway Attempt (12s, enforced by the HTTP client)
//	  ↓
//	Store Operation (2s)
//
// Each layer must complete before its parent times out.
type TimeoutConfig struct {
	HTTPHandler time.Duration // Overall request timeout
	Transaction time.Duration // One failover loop across all entry points
	Attempt     time.Duration // One HTTP exchange with an entry point
	Diagnostics time.Duration // Probe plus hosted form settings check
	Store       time.Duration // Order and session store operations
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 130 * time.Second,
		Transaction: 120 * time.Second,
		Attempt:     12 * time.Second,
		Diagnostics: 60 * time.Second,
		Store:       2 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 5 * time.Second,
		Transaction: 4 * time.Second,
		Attempt:     1 * time.Second,
		Diagnostics: 3 * time.Second,
		Store:       500 * time.Millisecond,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// TransactionContext bounds a whole failover loop
func (tc *TimeoutConfig) TransactionContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Transaction)
}

// DiagnosticsContext bounds a diagnostics run
func (tc *TimeoutConfig) DiagnosticsContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Diagnostics)
}

// StoreContext bounds a single store operation
func (tc *TimeoutConfig) StoreContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Store)
}
