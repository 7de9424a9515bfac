package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
)

// SecurityHeaders adds security-related HTTP headers to responses.
// The checkout pages auto-submit forms to the gateway and to card issuers,
// so form-action allows any https origin and inline scripts need a nonce.
type SecurityHeaders struct {
	// formActions are extra form targets besides https:
	formActions   []string
	isDevelopment bool
}

// NewSecurityHeaders creates a new security headers middleware
func NewSecurityHeaders(isDevelopment bool, formActions ...string) *SecurityHeaders {
	return &SecurityHeaders{
		formActions:   formActions,
		isDevelopment: isDevelopment,
	}
}

// Middleware wraps an HTTP handler with security headers
func (sh *SecurityHeaders) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce := newNonce()

		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Only in production to avoid issues with local development
		if !sh.isDevelopment {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		formAction := "https:"
		if sh.isDevelopment {
			formAction = "'self' https: http:"
		}
		if len(sh.formActions) > 0 {
			formAction += " " + strings.Join(sh.formActions, " ")
		}
		csp := "default-src 'none'; " +
			"script-src 'nonce-" + nonce + "'; " +
			"style-src 'unsafe-inline'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"form-action " + formAction
		w.Header().Set("Content-Security-Policy", csp)

		// Card issuers check the referrer of the ACS post
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		w.Header().Set("Permissions-Policy",
			"geolocation=(), "+
				"microphone=(), "+
				"camera=(), "+
				"usb=(), "+
				"magnetometer=(), "+
				"gyroscope=(), "+
				"accelerometer=()")

		w.Header().Set("X-Permitted-Cross-Domain-Policies", "none")

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), cspNonceKey, nonce)))
	})
}

func newNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
