package middleware

import (
	"context"
	"net/http"

	"github.com/common-repository/paymentsense-gateway/pkg/resilience"
	"go.uber.org/zap"
)

// Timeout applies the handler layer of the timeout hierarchy to HTTP requests
type Timeout struct {
	config *resilience.TimeoutConfig
	logger *zap.Logger
}

// NewTimeout creates a new timeout middleware
func NewTimeout(config *resilience.TimeoutConfig, logger *zap.Logger) *Timeout {
	return &Timeout{config: config, logger: logger}
}

// Middleware bounds the request context. A deadline already on the context
// is respected.
func (t *Timeout) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, hasDeadline := r.Context().Deadline(); hasDeadline {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := t.config.HandlerContext(r.Context())
		defer cancel()

		next.ServeHTTP(w, r.WithContext(ctx))

		if ctx.Err() == context.DeadlineExceeded {
			t.logger.Warn("Handler timeout exceeded",
				zap.String("path", r.URL.Path),
				zap.Duration("timeout", t.config.HTTPHandler),
			)
		}
	})
}
