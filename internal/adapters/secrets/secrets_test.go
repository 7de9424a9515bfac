package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	secretsmanagertypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnvVarName(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"gateway/password", "PSGW_SECRET_GATEWAY_PASSWORD"},
		{"gateway/preshared-key", "PSGW_SECRET_GATEWAY_PRESHARED_KEY"},
		{"/gateway.psk/", "PSGW_SECRET_GATEWAY_PSK"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnvVarName(tt.path))
		})
	}
}

func TestEnvSecretManager(t *testing.T) {
	env := map[string]string{"PSGW_SECRET_GATEWAY_PASSWORD": "s3cret"}
	sm := &envSecretManager{lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	secret, err := sm.GetSecret(context.Background(), "gateway/password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secret.Value)

	_, err = sm.GetSecret(context.Background(), "gateway/preshared-key")
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestLocalSecretManager(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gateway"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gateway", "password"), []byte("plain-value\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gateway", "psk"),
		[]byte(`{"value":"json-value","tags":{"env":"test"},"created_at":"2025-01-01T00:00:00Z"}`), 0o600))

	sm := NewLocalSecretManager(dir, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"plain text trims newline", "gateway/password", "plain-value", nil},
		{"json document", "gateway/psk", "json-value", nil},
		{"missing file", "gateway/missing", "", domain.ErrSecretNotFound},
		{"no escape from base path", "../../etc/passwd", "", domain.ErrSecretNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := sm.GetSecret(ctx, tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, secret.Value)
		})
	}
}

type fakeSecretsManager struct {
	err    error
	values map[string]string
	calls  int
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[aws.ToString(params.SecretId)]
	if !ok {
		return nil, &secretsmanagertypes.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(v),
		VersionId:    aws.String("v-1"),
		Name:         params.SecretId,
		CreatedDate:  aws.Time(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, nil
}

func TestAWSSecretsManagerAdapter(t *testing.T) {
	fake := &fakeSecretsManager{values: map[string]string{"psgw/gateway-password": "aws-secret"}}
	sm := newAWSSecretsManagerAdapter(fake, zap.NewNop())
	ctx := context.Background()

	secret, err := sm.GetSecret(ctx, "psgw/gateway-password")
	require.NoError(t, err)
	assert.Equal(t, "aws-secret", secret.Value)
	assert.Equal(t, "v-1", secret.Version)
	assert.Equal(t, "2025-01-01T00:00:00Z", secret.CreatedAt)
	assert.Equal(t, "psgw/gateway-password", secret.Metadata["name"])

	_, err = sm.GetSecret(ctx, "psgw/missing")
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)

	fake.err = errors.New("throttled")
	_, err = sm.GetSecret(ctx, "psgw/gateway-password")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrSecretNotFound))
}

func newTestVault(t *testing.T, handler http.HandlerFunc) *vaultAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := vault.DefaultConfig()
	cfg.Address = server.URL
	client, err := vault.NewClient(cfg)
	require.NoError(t, err)
	client.SetToken("test-token")

	return &vaultAdapter{client: client, config: DefaultVaultConfig(server.URL), logger: zap.NewNop()}
}

func TestVaultAdapter_GetSecret(t *testing.T) {
	sm := newTestVault(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/secret/data/psgw/gateway":
			assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"data":     map[string]interface{}{"value": "vault-secret", "owner": "payments"},
					"metadata": map[string]interface{}{"version": 3, "created_time": "2025-01-01T00:00:00Z"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	secret, err := sm.GetSecret(ctx, "psgw/gateway")
	require.NoError(t, err)
	assert.Equal(t, "vault-secret", secret.Value)
	assert.Equal(t, "3", secret.Version)
	assert.Equal(t, "2025-01-01T00:00:00Z", secret.CreatedAt)
	assert.Equal(t, "payments", secret.Metadata["owner"])

	_, err = sm.GetSecret(ctx, "psgw/missing")
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

type countingSecretManager struct {
	err   error
	calls int
}

func (c *countingSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &ports.Secret{Value: "v-" + path}, nil
}

func TestCachingSecretManager(t *testing.T) {
	inner := &countingSecretManager{}
	sm := NewCachingSecretManager(inner, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		secret, err := sm.GetSecret(ctx, "gateway/password")
		require.NoError(t, err)
		assert.Equal(t, "v-gateway/password", secret.Value)
	}
	assert.Equal(t, 1, inner.calls)

	failing := &countingSecretManager{err: domain.ErrSecretNotFound}
	sm = NewCachingSecretManager(failing, time.Minute, zap.NewNop())
	_, _ = sm.GetSecret(ctx, "gateway/password")
	_, _ = sm.GetSecret(ctx, "gateway/password")
	assert.Equal(t, 2, failing.calls, "errors must not be cached")
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		sm       ports.SecretManagerAdapter
		path     string
		fallback string
		want     string
		wantErr  bool
	}{
		{"empty path uses fallback", &countingSecretManager{}, "", "from-config", "from-config", false},
		{"secret wins", &countingSecretManager{}, "gw", "from-config", "v-gw", false},
		{"not found uses fallback", &countingSecretManager{err: domain.ErrSecretNotFound}, "gw", "from-config", "from-config", false},
		{"backend error", &countingSecretManager{err: errors.New("vault sealed")}, "gw", "from-config", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(ctx, tt.sm, tt.path, tt.fallback)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSecretManager(t *testing.T) {
	ctx := context.Background()

	sm, err := NewSecretManager(ctx, Config{Backend: BackendEnv}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &envSecretManager{}, sm)

	sm, err = NewSecretManager(ctx, Config{Backend: BackendLocal, LocalPath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &localSecretManager{}, sm)

	_, err = NewSecretManager(ctx, Config{Backend: BackendAWS}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewSecretManager(ctx, Config{Backend: BackendGCP}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewSecretManager(ctx, Config{Backend: BackendGCP, GCP: &GCPSecretManagerConfig{}}, zap.NewNop())
	assert.Error(t, err, "project ID is required")

	_, err = NewSecretManager(ctx, Config{Backend: "azure"}, zap.NewNop())
	assert.Error(t, err)
}
