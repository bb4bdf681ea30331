package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identifier and audit timestamps shared by every
// persisted aggregate. IDs are generated application-side so a row can be
// referenced before its first insert.
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity allocates a fresh identity with both timestamps set to now.
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
