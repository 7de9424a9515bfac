package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRequestLogger_AssignsRequestID(t *testing.T) {
	var seen string
	handler := NewRequestLogger(zaptest.NewLogger(t)).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates an ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("keeps a valid incoming ID", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/info", nil)
		req.Header.Set(RequestIDHeader, id)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, id, seen)
	})

	t.Run("replaces a malformed incoming ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/info", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.NotEqual(t, "<script>", seen)
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
	})
}

func TestAdminAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{name: "valid token", token: "s3cret", header: "Bearer s3cret", want: http.StatusNoContent},
		{name: "wrong token", token: "s3cret", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "missing header", token: "s3cret", header: "", want: http.StatusUnauthorized},
		{name: "basic scheme", token: "s3cret", header: "Basic s3cret", want: http.StatusUnauthorized},
		{name: "no token configured", token: "", header: "Bearer ", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders/1/refunds", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			NewAdminAuth(tt.token, zaptest.NewLogger(t)).Middleware(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	var nonce string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce = CSPNonce(r.Context())
	})

	t.Run("production", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewSecurityHeaders(false).Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, nonce)
		csp := rec.Header().Get("Content-Security-Policy")
		assert.Contains(t, csp, "script-src 'nonce-"+nonce+"'")
		assert.True(t, strings.HasSuffix(csp, "form-action https:"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("development with extra form target", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewSecurityHeaders(true, "http://acs.local").Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		csp := rec.Header().Get("Content-Security-Policy")
		assert.Contains(t, csp, "form-action 'self' https: http: http://acs.local")
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("nonce changes per request", func(t *testing.T) {
		h := NewSecurityHeaders(false).Middleware(next)
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		first := nonce
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEqual(t, first, nonce)
	})
}
