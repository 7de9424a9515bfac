package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"go.uber.org/zap"
)

// Backends
const (
	BackendEnv   = "env"
	BackendLocal = "local"
	BackendAWS   = "aws"
	BackendVault = "vault"
	BackendGCP   = "gcp"
)

// Config selects and configures a secret backend
type Config struct {
	AWS       *AWSSecretsManagerConfig
	GCP       *GCPSecretManagerConfig
	Vault     *VaultConfig
	Backend   string
	LocalPath string
	CacheTTL  time.Duration
}

// NewSecretManager builds the configured backend. Remote backends are
// wrapped in a cache when CacheTTL is positive.
func NewSecretManager(ctx context.Context, cfg Config, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	var (
		sm  ports.SecretManagerAdapter
		err error
	)

	switch cfg.Backend {
	case "", BackendEnv:
		return NewEnvSecretManager(), nil
	case BackendLocal:
		return NewLocalSecretManager(cfg.LocalPath, logger), nil
	case BackendAWS:
		if cfg.AWS == nil {
			return nil, fmt.Errorf("aws secrets backend selected without aws configuration")
		}
		sm, err = NewAWSSecretsManagerAdapter(ctx, cfg.AWS, logger)
	case BackendVault:
		if cfg.Vault == nil {
			return nil, fmt.Errorf("vault secrets backend selected without vault configuration")
		}
		sm, err = NewVaultAdapter(ctx, cfg.Vault, logger)
	case BackendGCP:
		if cfg.GCP == nil {
			return nil, fmt.Errorf("gcp secrets backend selected without gcp configuration")
		}
		sm, err = NewGCPSecretManager(ctx, cfg.GCP, logger)
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheTTL > 0 {
		sm = NewCachingSecretManager(sm, cfg.CacheTTL, logger)
	}
	return sm, nil
}

// Resolve returns the secret at path, or fallback when path is empty or the
// secret does not exist. Other backend errors are returned.
func Resolve(ctx context.Context, sm ports.SecretManagerAdapter, path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	secret, err := sm.GetSecret(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return fallback, nil
		}
		return "", fmt.Errorf("failed to resolve secret %s: %w", path, err)
	}
	return secret.Value, nil
}
