package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// AdminAuth guards merchant-only endpoints with a static bearer token
type AdminAuth struct {
	logger *zap.Logger
	token  string
}

// NewAdminAuth creates the middleware. An empty token rejects every request.
func NewAdminAuth(token string, logger *zap.Logger) *AdminAuth {
	return &AdminAuth{logger: logger, token: token}
}

// Middleware wraps next with bearer token authentication
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.token == "" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(provided), []byte(a.token)) != 1 {
			a.logger.Warn("Admin request rejected",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Bool("has_token", ok),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="psgw"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
