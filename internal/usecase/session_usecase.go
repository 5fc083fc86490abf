package usecase

import (
	"context"

	"lavra/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionUsecase defines the interface for session management operations.
type SessionUsecase interface {
	// ListActiveSessions returns the user's sessions that can still be refreshed.
	ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]*entity.SessionInfo, error)
	// CleanupExpiredSessions purges expired refresh tokens and returns how many were removed.
	CleanupExpiredSessions(ctx context.Context) (int, error)
}
