package secrets

import (
	"context"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// cachingSecretManager keeps secrets in memory for a TTL so a remote backend
// is not consulted on every gateway request
type cachingSecretManager struct {
	inner  ports.SecretManagerAdapter
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewCachingSecretManager wraps inner with a TTL cache. Errors are not cached.
func NewCachingSecretManager(inner ports.SecretManagerAdapter, ttl time.Duration, logger *zap.Logger) ports.SecretManagerAdapter {
	return &cachingSecretManager{
		inner:  inner,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (c *cachingSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached, ok := c.cache.Get(path); ok {
		c.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached.(*ports.Secret), nil
	}

	secret, err := c.inner.GetSecret(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(path, secret)
	return secret, nil
}
