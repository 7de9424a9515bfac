package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/common-repository/paymentsense-gateway/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTimeout_SetsDeadline(t *testing.T) {
	cfg := resilience.TestTimeoutConfig()
	mw := NewTimeout(cfg, zap.NewNop())

	var deadline time.Time
	var ok bool
	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(cfg.HTTPHandler), deadline, 500*time.Millisecond)
}

func TestTimeout_RespectsExistingDeadline(t *testing.T) {
	mw := NewTimeout(resilience.DefaultTimeoutConfig(), zap.NewNop())

	parent, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	want, _ := parent.Deadline()

	var got time.Time
	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Deadline()
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(parent)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, want, got)
}
