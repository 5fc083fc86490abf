package repository

import (
	"context"

	"lavra/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for refresh token persistence.
var (
	// ErrRefreshTokenNotFound is returned when a refresh token is not found.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenExpired is returned when a refresh token has expired.
	ErrRefreshTokenExpired = errors.New("refresh token has expired")
	// ErrRefreshTokenAlreadyExists is returned when a token with the same hash is already stored.
	ErrRefreshTokenAlreadyExists = errors.New("refresh token already exists")
)

// RefreshTokenRepository defines the interface for refresh token and session management operations.
// A stored row is what makes a refresh token usable; tokens are addressed by the hash of their exact string.
type RefreshTokenRepository interface {
	// CreateRefreshToken persists a new refresh token, representing a user session.
	CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error

	// FindRefreshTokenByHash retrieves a refresh token record together with its owning user.
	// Returns ErrRefreshTokenExpired when the row exists but is past its expiry.
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// FindRefreshTokensByUserID retrieves all active refresh tokens for a specific user.
	FindRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error)

	// DeleteRefreshTokenByHash deletes a refresh token by its hash.
	// Returns ErrRefreshTokenNotFound when no row was deleted.
	DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) error

	// DeleteRefreshTokensByUserID removes all refresh tokens for a specific user and reports how many were removed.
	DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteExpiredRefreshTokens removes all expired refresh tokens.
	// This should be called periodically for cleanup.
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)

	// CountActiveSessionsByUserID returns the number of active (non-expired) sessions for a user.
	CountActiveSessionsByUserID(ctx context.Context, userID uuid.UUID) (int, error)
}
