package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/common-repository/paymentsense-gateway/internal/adapters/ports"
	"github.com/common-repository/paymentsense-gateway/internal/domain"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPSecretManagerConfig contains configuration for GCP Secret Manager
type GCPSecretManagerConfig struct {
	ProjectID string // e.g. "my-project-123"
}

// secretVersionAccessor is the subset of the Secret Manager client in use
type secretVersionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// gcpSecretManager reads the latest version of a secret. Credentials come
// from GOOGLE_APPLICATION_CREDENTIALS or workload identity.
type gcpSecretManager struct {
	client    secretVersionAccessor
	logger    *zap.Logger
	projectID string
}

// NewGCPSecretManager creates a GCP Secret Manager adapter
func NewGCPSecretManager(ctx context.Context, cfg *GCPSecretManagerConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	logger.Info("GCP Secret Manager initialized", zap.String("project_id", cfg.ProjectID))
	return newGCPSecretManager(client, cfg.ProjectID, logger), nil
}

func newGCPSecretManager(client secretVersionAccessor, projectID string, logger *zap.Logger) *gcpSecretManager {
	return &gcpSecretManager{client: client, logger: logger, projectID: projectID}
}

// GetSecret retrieves the latest version of the secret named by path.
// Slashes are not allowed in GCP secret IDs and become dashes.
func (sm *gcpSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	name := sm.versionName(path)

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSecretNotFound.WithDetail("path", path)
		}
		sm.logger.Error("Failed to access GCP secret",
			zap.String("path", path),
			zap.String("secret_name", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to access GCP secret %s: %w", path, err)
	}

	return &ports.Secret{
		Value:   string(result.GetPayload().GetData()),
		Version: versionFromName(result.GetName()),
		Metadata: map[string]string{
			"gcp_project_id": sm.projectID,
			"gcp_secret":     path,
		},
		// AccessSecretVersion does not return the create time
		CreatedAt: time.Now().Format(time.RFC3339),
	}, nil
}

func (sm *gcpSecretManager) versionName(path string) string {
	id := strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", sm.projectID, id)
}

// versionFromName returns the last segment of
// projects/{project}/secrets/{secret}/versions/{version}
func versionFromName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return "unknown"
}
