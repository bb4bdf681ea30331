package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/erp/taxsync/internal/domain/shared"
)

// Status represents the lifecycle state of a stored session
type Status string

const (
	// StatusActive is the single live session for a tenant
	StatusActive Status = "active"
	// StatusSuperseded marks a session replaced by a newer login
	StatusSuperseded Status = "superseded"
	// StatusRevoked marks a session invalidated by an explicit logout
	StatusRevoked Status = "revoked"
)

// Session is a stored remote login for a tenant. At most one session per
// tenant may be active at any time; storing a new one supersedes the
// previous active row in the same transaction.
type Session struct {
	shared.BaseEntity
	TenantID     string     `gorm:"type:varchar(11);not null;index:idx_sessions_tenant_status"`
	Token        string     `gorm:"type:text;not null;index"`
	TokenType    string     `gorm:"type:varchar(32);not null;default:'Bearer'"`
	RefreshToken string     `gorm:"type:text"`
	Fingerprint  string     `gorm:"type:varchar(64);not null"`
	Status       Status     `gorm:"type:varchar(16);not null;index:idx_sessions_tenant_status"`
	ExpiresAt    time.Time  `gorm:"not null;index"`
	LastUsedAt   *time.Time
}

// TableName returns the database table name
func (Session) TableName() string {
	return "sessions"
}

// New creates an active session for a tenant. The refresh token may be
// empty; the remote service does not always issue one.
func New(tenantID, token, tokenType, refreshToken, fingerprint string, expiresAt time.Time) *Session {
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &Session{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     tenantID,
		Token:        token,
		TokenType:    tokenType,
		RefreshToken: refreshToken,
		Fingerprint:  fingerprint,
		Status:       StatusActive,
		ExpiresAt:    expiresAt,
	}
}

// IsValid reports whether the session is active and not yet expired
func (s *Session) IsValid(now time.Time) bool {
	return s.Status == StatusActive && s.ExpiresAt.After(now)
}

// RemainingSeconds returns the whole seconds until expiry, never negative
func (s *Session) RemainingSeconds(now time.Time) int {
	remaining := int(s.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Fingerprint derives a stable credential fingerprint. It identifies which
// credential bundle produced a session without storing any secret material.
func Fingerprint(taxID, username, clientID string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s", taxID, username, clientID))
	return hex.EncodeToString(sum[:])
}
