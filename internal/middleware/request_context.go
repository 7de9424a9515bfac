package middleware

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	cspNonceKey  contextKey = "csp_nonce"
)

// RequestID returns the ID assigned by RequestLogger, or ""
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// CSPNonce returns the script nonce allowed by SecurityHeaders, or ""
func CSPNonce(ctx context.Context) string {
	if nonce, ok := ctx.Value(cspNonceKey).(string); ok {
		return nonce
	}
	return ""
}
