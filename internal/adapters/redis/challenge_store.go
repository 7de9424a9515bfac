// Package redis keeps 3-D Secure challenges in Redis so every instance
// behind a load balancer sees the same customer session.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "psgw:3ds:"

// Config contains the Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ChallengeStore implements ports.ChallengeStore on Redis
type ChallengeStore struct {
	client goredis.UniversalClient
	logger *zap.Logger
	ttl    time.Duration
}

// NewChallengeStore connects to Redis and verifies the connection
func NewChallengeStore(ctx context.Context, cfg Config, logger *zap.Logger) (*ChallengeStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("Redis challenge store initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.Duration("ttl", cfg.TTL),
	)
	return NewChallengeStoreWithClient(client, cfg.TTL, logger), nil
}

// NewChallengeStoreWithClient wraps an existing client
func NewChallengeStoreWithClient(client goredis.UniversalClient, ttl time.Duration, logger *zap.Logger) *ChallengeStore {
	return &ChallengeStore{client: client, ttl: ttl, logger: logger}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Put stores the challenge, replacing any previous one for the session
func (s *ChallengeStore) Put(ctx context.Context, sessionID string, challenge domain.ThreeDSecureChallenge) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	if err := s.client.Set(ctx, key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

// Get returns the challenge or domain.ErrChallengeNotFound
func (s *ChallengeStore) Get(ctx context.Context, sessionID string) (*domain.ThreeDSecureChallenge, error) {
	data, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}

	var challenge domain.ThreeDSecureChallenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		s.logger.Warn("Discarding unreadable 3-D Secure challenge",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, domain.ErrChallengeNotFound
	}
	return &challenge, nil
}

// Delete removes the challenge
func (s *ChallengeStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}

// HealthCheck pings Redis
func (s *ChallengeStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client
func (s *ChallengeStore) Close() error {
	return s.client.Close()
}
