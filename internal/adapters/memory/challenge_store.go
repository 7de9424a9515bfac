package memory

import (
	"context"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/patrickmn/go-cache"
)

// ChallengeStore implements ports.ChallengeStore on an expiring in-process cache
type ChallengeStore struct {
	cache *cache.Cache
}

// NewChallengeStore creates a store whose entries expire after ttl
func NewChallengeStore(ttl time.Duration) *ChallengeStore {
	return &ChallengeStore{cache: cache.New(ttl, 2*ttl)}
}

// Put stores the challenge, replacing any previous one for the session
func (s *ChallengeStore) Put(ctx context.Context, sessionID string, challenge domain.ThreeDSecureChallenge) error {
	s.cache.SetDefault(sessionID, challenge)
	return nil
}

// Get returns the challenge or domain.ErrChallengeNotFound
func (s *ChallengeStore) Get(ctx context.Context, sessionID string) (*domain.ThreeDSecureChallenge, error) {
	v, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	challenge := v.(domain.ThreeDSecureChallenge)
	return &challenge, nil
}

// Delete removes the challenge
func (s *ChallengeStore) Delete(ctx context.Context, sessionID string) error {
	s.cache.Delete(sessionID)
	return nil
}

// Close drops every entry
func (s *ChallengeStore) Close() error {
	s.cache.Flush()
	return nil
}
