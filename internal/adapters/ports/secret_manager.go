package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Metadata  map[string]string // Additional secret metadata
	Value     string            // The secret value (gateway password, pre-shared key)
	Version   string            // Secret version identifier
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter reads gateway secrets from a secret management service.
// Backends: environment, local files, AWS Secrets Manager, HashiCorp Vault
// and GCP Secret Manager.
// Secrets are provisioned out of band; the service never writes them.
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name
	// Path format depends on implementation:
	//   - env:   "gateway/password" -> PSGW_SECRET_GATEWAY_PASSWORD
	//   - local: file under the base directory
	//   - AWS:   secret name or ARN
	//   - Vault: path under the KV mount
	//   - GCP:   secret ID, with '/' mapped to '-'
	// Returns domain.ErrSecretNotFound when the secret does not exist
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
