package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_ShutdownOrder(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	var order []string
	m.RegisterNoErr("store", func() { order = append(order, "store") })
	m.RegisterNoErr("worker", func() { order = append(order, "worker") })
	m.Register("http", func(ctx context.Context) error {
		order = append(order, "http")
		return errors.New("listener already closed")
	})

	errs := m.Shutdown()

	assert.Equal(t, []string{"http", "worker", "store"}, order)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs["http"], "listener already closed")

	// second call is a no-op
	assert.Empty(t, m.Shutdown())
	assert.Len(t, order, 3)
}

func TestInFlightTracker_Middleware(t *testing.T) {
	tracker := NewInFlightTracker("http", zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	handler := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	go handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))
	<-started

	shutdownErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		shutdownErr <- tracker.Shutdown(ctx)
	}()

	require.Eventually(t, tracker.IsShuttingDown, time.Second, 5*time.Millisecond)

	// new work is refused while the first request is still running
	rejected := httptest.NewRecorder()
	handler.ServeHTTP(rejected, httptest.NewRequest(http.MethodPost, "/checkout", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rejected.Code)

	close(release)
	assert.NoError(t, <-shutdownErr)
}

func TestInFlightTracker_ShutdownTimeout(t *testing.T) {
	tracker := NewInFlightTracker("jobs", zap.NewNop())
	require.True(t, tracker.Add())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
	tracker.Done()
}

func TestPeriodicWorker(t *testing.T) {
	var runs atomic.Int32
	pw := NewPeriodicWorker("probe", 10*time.Millisecond, zap.NewNop())

	pw.Start(context.Background(), func(ctx context.Context) {
		runs.Add(1)
	})

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pw.Shutdown(ctx))

	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}
