package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionInfo is the read model of an active refresh token exposed to its owner.
type SessionInfo struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}
