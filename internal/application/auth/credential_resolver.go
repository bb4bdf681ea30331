package auth

import (
	"context"
	"errors"

	"github.com/erp/taxsync/internal/domain/company"
	"github.com/erp/taxsync/internal/domain/shared"
	"go.uber.org/zap"
)

// CredentialSource resolves the credential bundle to use for a tenant
type CredentialSource interface {
	Resolve(ctx context.Context, tenantID string) (*company.Credentials, bool)
}

// CredentialResolver looks up credentials on the tenant's company record
// and falls back to a static table of sandbox tenants. Resolution is soft:
// an unknown tenant is not an error, callers may still supply their own
// credentials.
type CredentialResolver struct {
	companies company.Repository
	overrides map[string]company.Credentials
	logger    *zap.Logger
}

// sandboxCredentials are placeholder integration-test tenants. None of
// these values work against the real service.
var sandboxCredentials = map[string]company.Credentials{
	"20000000000": {
		TaxID:        "20000000000",
		Username:     "SANDBOX1",
		Password:     "sandbox-password-1",
		ClientID:     "00000000-0000-4000-8000-000000000001",
		ClientSecret: "sandbox-secret-1",
	},
	"20000000001": {
		TaxID:        "20000000001",
		Username:     "SANDBOX2",
		Password:     "sandbox-password-2",
		ClientID:     "00000000-0000-4000-8000-000000000002",
		ClientSecret: "sandbox-secret-2",
	},
}

// NewCredentialResolver creates a resolver over the company repository
func NewCredentialResolver(companies company.Repository, logger *zap.Logger) *CredentialResolver {
	return &CredentialResolver{
		companies: companies,
		overrides: sandboxCredentials,
		logger:    logger.Named("credential_resolver"),
	}
}

// Resolve returns the credentials configured for a tenant, or false when
// the tenant has none. The company record wins when it is enabled and
// complete; otherwise the static table is consulted.
func (r *CredentialResolver) Resolve(ctx context.Context, tenantID string) (*company.Credentials, bool) {
	c, err := r.companies.FindByTaxID(ctx, tenantID)
	switch {
	case err == nil:
		if c.IntegrationEnabled && c.HasCompleteCredentials() {
			creds := c.Credentials()
			return &creds, true
		}
		r.logger.Debug("Company record present but not usable for login",
			zap.String("tenant_id", tenantID),
			zap.Bool("integration_enabled", c.IntegrationEnabled),
		)
	case errors.Is(err, shared.ErrNotFound):
		// Unknown tenant, fall through to the static table
	default:
		r.logger.Warn("Company lookup failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}

	if creds, ok := r.overrides[tenantID]; ok {
		r.logger.Debug("Using sandbox credentials", zap.String("tenant_id", tenantID))
		return &creds, true
	}
	return nil, false
}

// Ensure CredentialResolver implements CredentialSource
var _ CredentialSource = (*CredentialResolver)(nil)
