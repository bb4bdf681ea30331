package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/taxsync/internal/domain/session"
	"github.com/erp/taxsync/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSessionStore implements session.Store using GORM
type GormSessionStore struct {
	db *gorm.DB
}

// NewGormSessionStore creates a new GormSessionStore
func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

// Store inserts a new active session. Any prior active session for the same
// tenant is superseded in the same transaction, so at most one row per
// tenant is ever active.
func (r *GormSessionStore) Store(ctx context.Context, s *session.Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&session.Session{}).
			Where("tenant_id = ? AND status = ?", s.TenantID, session.StatusActive).
			Update("status", session.StatusSuperseded).Error; err != nil {
			return err
		}
		return tx.Create(s).Error
	})
}

// GetValid returns the newest active, unexpired session for a tenant
func (r *GormSessionStore) GetValid(ctx context.Context, tenantID string) (*session.Session, error) {
	var s session.Session
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND expires_at > ?", tenantID, session.StatusActive, time.Now()).
		Order("created_at DESC").
		First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Revoke marks all active sessions for a tenant as revoked and returns the
// number of rows affected. Revoking a tenant with no active session is not
// an error.
func (r *GormSessionStore) Revoke(ctx context.Context, tenantID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&session.Session{}).
		Where("tenant_id = ? AND status = ?", tenantID, session.StatusActive).
		Update("status", session.StatusRevoked)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Info returns the newest session row holding the given token
func (r *GormSessionStore) Info(ctx context.Context, token string) (*session.Session, error) {
	var s session.Session
	if err := r.db.WithContext(ctx).
		Where("token = ?", token).
		Order("created_at DESC").
		First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Touch records the last time a session was handed out
func (r *GormSessionStore) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&session.Session{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// Ensure GormSessionStore implements session.Store
var _ session.Store = (*GormSessionStore)(nil)
