package impl

import (
	"context"
	"log/slog"

	deliverycontext "lavra/internal/delivery/context"
	"lavra/internal/domain/entity"
	"lavra/internal/domain/repository"
	"lavra/internal/errors"
	"lavra/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	logger           *slog.Logger
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	RefreshTokenRepo repository.RefreshTokenRepository
	Logger           *slog.Logger
}

// NewSessionService creates a new session service instance.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return &sessionService{
		refreshTokenRepo: params.RefreshTokenRepo,
		logger:           params.Logger,
	}
}

func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListActiveSessions returns the user's unexpired sessions.
func (srv *sessionService) ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]*entity.SessionInfo, error) {
	tokens, err := srv.refreshTokenRepo.FindRefreshTokensByUserID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find active sessions")
	}

	sessions := make([]*entity.SessionInfo, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, &entity.SessionInfo{
			ID:        token.ID,
			UserID:    token.UserID,
			CreatedAt: token.CreatedAt,
			ExpiresAt: token.ExpiresAt,
		})
	}

	return sessions, nil
}

// CleanupExpiredSessions removes refresh tokens past their expiry.
func (srv *sessionService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	deleted, err := srv.refreshTokenRepo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		srv.log(ctx).Error("Failed to clean up expired sessions", slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to delete expired refresh tokens")
	}

	srv.log(ctx).Info("Expired sessions cleaned up", slog.Int64("deleted", deleted))

	return int(deleted), nil
}
