package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "psgw:3ds:abc", key("abc"))
}

func TestNewChallengeStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	store, err := NewChallengeStore(ctx, Config{Addr: "127.0.0.1:1", TTL: time.Minute}, zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, store)
}

// TestChallengeStore_RoundTrip requires a running Redis
func TestChallengeStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}

	ctx := context.Background()
	store, err := NewChallengeStore(ctx, Config{Addr: addr, TTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	session := uuid.New().String()
	_, err = store.Get(ctx, session)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)

	challenge := domain.ThreeDSecureChallenge{PaREQ: "pareq", CrossReference: "xref", ACSURL: "https://acs.example"}
	require.NoError(t, store.Put(ctx, session, challenge))

	got, err := store.Get(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, challenge, *got)

	require.NoError(t, store.Delete(ctx, session))
	_, err = store.Get(ctx, session)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
	assert.NoError(t, store.HealthCheck(ctx))
}
