package auth

import (
	"time"

	"github.com/erp/taxsync/internal/domain/company"
)

// AuthenticateInput carries an authentication request. Credentials are
// optional; resolved credentials take precedence when the tenant is known.
type AuthenticateInput struct {
	TenantID    string
	Credentials *company.Credentials
}

// SessionDescriptor describes a live session returned to callers. The
// session ID is the stored row's identifier, never the token itself.
type SessionDescriptor struct {
	SessionID        string    `json:"session_id"`
	TenantID         string    `json:"tenant_id"`
	Token            string    `json:"token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Reused           bool      `json:"reused"`
	Fingerprint      string    `json:"fingerprint"`
}

// Status reports session liveness and remote reachability for a tenant
type Status struct {
	TenantID         string     `json:"tenant_id"`
	HasActiveSession bool       `json:"has_active_session"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
	RemoteReachable  bool       `json:"remote_reachable"`
}

// LogoutResult reports how many sessions an explicit logout revoked
type LogoutResult struct {
	TenantID        string `json:"tenant_id"`
	RevokedSessions int64  `json:"revoked_sessions"`
}

// TokenInfo combines stored session state with the token's own claims.
// Claims are read without signature verification; they are informational
// only and never grant access.
type TokenInfo struct {
	Known            bool           `json:"known"`
	TenantID         string         `json:"tenant_id,omitempty"`
	Status           string         `json:"status,omitempty"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	RemainingSeconds int            `json:"remaining_seconds"`
	Fingerprint      string         `json:"fingerprint,omitempty"`
	Claims           map[string]any `json:"claims,omitempty"`
}
