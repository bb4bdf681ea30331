package auth

import (
	"fmt"

	"github.com/erp/taxsync/internal/domain/shared"
)

// NewMissingCredentialError reports the first absent credential field
func NewMissingCredentialError(field string) *shared.DomainError {
	return shared.NewDomainError("MISSING_CREDENTIAL", fmt.Sprintf("Credential field %q is required", field))
}

// NewRateLimitedError reports a tenant in cooldown with the seconds left
func NewRateLimitedError(remainingSeconds int) *shared.DomainError {
	return shared.NewDomainError("RATE_LIMITED",
		fmt.Sprintf("Too many failed authentication attempts, retry in %d seconds", remainingSeconds))
}

// NewInvalidTenantIDError reports a tenant ID that cannot be normalized
func NewInvalidTenantIDError(raw string) *shared.DomainError {
	return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Tenant ID %q is not a valid tax ID", raw))
}
