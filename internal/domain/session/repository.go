package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines persistence operations for sessions.
//
// Store must atomically supersede any prior active session for the same
// tenant before inserting the new one, so the single-active-session
// invariant holds even under concurrent logins. Touch records when a
// session was last handed out; it is usage metadata and never changes
// a session's validity.
type Store interface {
	Store(ctx context.Context, s *Session) error
	GetValid(ctx context.Context, tenantID string) (*Session, error)
	Revoke(ctx context.Context, tenantID string) (int64, error)
	Info(ctx context.Context, token string) (*Session, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}
