package secrets

import (
	"context"
	"os"
	"strings"

	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
)

// EnvPrefix prefixes the environment variables the env backend reads
const EnvPrefix = "PSGW_SECRET_"

// envSecretManager reads secrets from environment variables.
// "gateway/preshared-key" is read from PSGW_SECRET_GATEWAY_PRESHARED_KEY.
type envSecretManager struct {
	lookup func(string) (string, bool)
}

// NewEnvSecretManager creates a secret manager over the process environment
func NewEnvSecretManager() ports.SecretManagerAdapter {
	return &envSecretManager{lookup: os.LookupEnv}
}

// EnvVarName returns the variable a secret path is read from
func EnvVarName(path string) string {
	replacer := strings.NewReplacer("/", "_", "-", "_", ".", "_")
	return EnvPrefix + strings.ToUpper(replacer.Replace(strings.Trim(path, "/")))
}

func (m *envSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	name := EnvVarName(path)
	value, ok := m.lookup(name)
	if !ok {
		return nil, domain.ErrSecretNotFound.WithDetail("path", path)
	}
	return &ports.Secret{
		Value:    value,
		Version:  "env",
		Metadata: map[string]string{"variable": name},
	}, nil
}
