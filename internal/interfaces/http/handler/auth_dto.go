package handler

import "github.com/erp/taxsync/internal/domain/company"

// CredentialsPayload carries caller-provided portal credentials. They are
// only used when the tenant has no configured credentials of its own.
type CredentialsPayload struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (p *CredentialsPayload) toDomain() *company.Credentials {
	if p == nil {
		return nil
	}
	return &company.Credentials{
		Username:     p.Username,
		Password:     p.Password,
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
	}
}

// AuthenticateRequest represents an authentication request
type AuthenticateRequest struct {
	TenantID    string              `json:"tenant_id" binding:"required"`
	Credentials *CredentialsPayload `json:"credentials"`
}

// LogoutRequest represents an explicit logout request
type LogoutRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
}

// ValidateTokenRequest represents a token introspection request
type ValidateTokenRequest struct {
	Token string `json:"token" binding:"required"`
}
