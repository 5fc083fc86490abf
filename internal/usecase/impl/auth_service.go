// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"lavra/config"
	deliverycontext "lavra/internal/delivery/context"
	"lavra/internal/domain/entity"
	domainerrors "lavra/internal/domain/errors"
	"lavra/internal/domain/repository"
	"lavra/internal/domain/service"
	"lavra/internal/errors"
	"lavra/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// errPasswordTooLong matches the password detail the request validator reports.
var errPasswordTooLong = domainerrors.ErrValidationFailed.WithDetails("password must be at most 72 bytes")

// authService implements the AuthUsecase interface.
type authService struct {
	txManager         repository.TransactionManager
	userRepo          repository.UserRepository
	refreshTokenRepo  repository.RefreshTokenRepository
	hasher            service.PasswordHasher
	tokenService      service.TokenService
	publisher         service.EventPublisher
	maxActiveSessions int
	now               func() time.Time
	logger            *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	TokenService     service.TokenService
	Publisher        service.EventPublisher `optional:"true"`
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	maxActiveSessions := 0
	if params.Config != nil && params.Config.Auth != nil {
		maxActiveSessions = params.Config.Auth.MaxActiveSessions
	}

	return &authService{
		txManager:         params.TxManager,
		userRepo:          params.UserRepo,
		refreshTokenRepo:  params.RefreshTokenRepo,
		hasher:            params.Hasher,
		tokenService:      params.TokenService,
		publisher:         params.Publisher,
		maxActiveSessions: maxActiveSessions,
		now:               time.Now,
		logger:            params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register orchestrates the complete user registration process.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.AuthOutput, error) {
	srv.log(ctx).Info("Starting registration", slog.String("email", input.Email))

	if len(input.Password) > service.MaxPasswordBytes {
		return nil, errPasswordTooLong
	}

	_, err := srv.userRepo.FindByEmail(ctx, input.Email)
	switch {
	case err == nil:
		return nil, domainerrors.ErrEmailAlreadyRegistered.WrapMessage("email already registered")
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, errors.Wrap(err, "failed to check existing user")
	}

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if errors.Is(err, service.ErrPasswordTooLong) {
		return nil, errPasswordTooLong
	}
	if err != nil {
		srv.log(ctx).Error("Failed to hash password", slog.Any("error", err))

		return nil, domainerrors.ErrPasswordHashFailed.WrapMessage("failed to hash password")
	}

	user := &entity.User{
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Name:         input.Name,
		Phone:        input.Phone,
		Role:         entity.RoleUser,
		Status:       entity.UserStatusActive,
	}

	var output *usecase.AuthOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.UserRepo().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrUserAlreadyExists) {
				return domainerrors.ErrEmailAlreadyRegistered.WrapMessage("email already registered")
			}

			return domainerrors.ErrUserCreationFailed.WrapMessage(err.Error())
		}

		issued, err := srv.issueSessionTokens(ctx, repoFactory, user, true)
		if err != nil {
			return err
		}
		output = issued

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "registration failed")
	}

	srv.log(ctx).Info("Registration completed", slog.Any("user_id", user.ID))
	srv.publish(ctx, service.EventUserRegistered, user.ID, user.Email)

	return output, nil
}

// Login authenticates a user and opens a new session.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.AuthOutput, error) {
	srv.log(ctx).Info("Login attempt", slog.String("email", input.Email))

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrInvalidCredentials.WrapMessage("login failed")
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Password mismatch", slog.Any("user_id", user.ID))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("login failed")
	}

	if !user.CanAuthenticate() {
		srv.log(ctx).Warn("Login rejected for inactive account",
			slog.Any("user_id", user.ID), slog.String("status", user.Status.String()))

		return nil, domainerrors.ErrAccountInactive.WrapMessage("login failed")
	}

	var output *usecase.AuthOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		issued, err := srv.issueSessionTokens(ctx, repoFactory, user, true)
		if err != nil {
			return err
		}
		output = issued

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "login failed")
	}

	srv.log(ctx).Info("Login successful", slog.Any("user_id", user.ID))

	return output, nil
}

// RefreshToken rotates a refresh token. The old row is deleted in the same transaction
// that stores the new one, so a token can be exchanged at most once.
func (srv *authService) RefreshToken(ctx context.Context, refreshToken string) (*usecase.AuthOutput, error) {
	claims, err := srv.tokenService.ValidateToken(refreshToken, service.TokenTypeRefresh)
	if err != nil {
		srv.log(ctx).Warn("Refresh token rejected", slog.Any("error", err))

		return nil, domainerrors.ErrInvalidToken.WrapMessage("invalid refresh token")
	}

	tokenHash := srv.tokenService.HashToken(refreshToken)

	var output *usecase.AuthOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		stored, err := refreshRepo.FindRefreshTokenByHash(ctx, tokenHash)
		if err != nil {
			return errors.Wrap(err, "failed to find refresh token")
		}
		if stored.UserID != claims.UserID {
			return errors.New("refresh token subject does not match stored owner")
		}

		user := stored.User
		if user == nil {
			user, err = repoFactory.UserRepo().FindByID(ctx, stored.UserID)
			if err != nil {
				return errors.Wrap(err, "failed to load token owner")
			}
		}
		if !user.CanAuthenticate() {
			return errors.Errorf("token owner is %s", user.Status)
		}

		// Zero rows here means another rotation already consumed this token.
		if err := refreshRepo.DeleteRefreshTokenByHash(ctx, tokenHash); err != nil {
			return errors.Wrap(err, "failed to consume refresh token")
		}

		issued, err := srv.issueSessionTokens(ctx, repoFactory, user, false)
		if err != nil {
			return err
		}
		output = issued

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Refresh token rotation failed", slog.Any("user_id", claims.UserID), slog.Any("error", err))

		return nil, domainerrors.ErrInvalidToken.WrapMessage("invalid refresh token")
	}

	srv.log(ctx).Info("Refresh token rotated", slog.Any("user_id", claims.UserID))

	return output, nil
}

// Logout deletes every refresh token of the user. Access tokens already issued stay valid until they expire.
func (srv *authService) Logout(ctx context.Context, userID uuid.UUID) (bool, error) {
	srv.log(ctx).Info("Attempting to log out", slog.Any("user_id", userID))

	deleted, err := srv.refreshTokenRepo.DeleteRefreshTokensByUserID(ctx, userID)
	if err != nil {
		srv.log(ctx).Error("Failed to delete refresh tokens", slog.Any("error", err), slog.Any("user_id", userID))

		return false, errors.Wrap(err, "failed to delete refresh tokens")
	}

	srv.log(ctx).Info("Logged out", slog.Any("user_id", userID), slog.Int64("revoked_sessions", deleted))
	srv.publish(ctx, service.EventUserLoggedOut, userID, "")

	return true, nil
}

// issueSessionTokens generates a token pair for the user and stores the refresh token.
// It must run inside a transaction when enforceLimit is set.
func (srv *authService) issueSessionTokens(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	user *entity.User,
	enforceLimit bool,
) (*usecase.AuthOutput, error) {
	refreshRepo := repoFactory.RefreshTokenRepo()

	if enforceLimit && srv.maxActiveSessions > 0 {
		if err := repoFactory.UserRepo().AcquireSessionMutex(ctx, user.ID); err != nil {
			return nil, errors.Wrap(err, "failed to lock user row for session limit check")
		}

		activeSessions, err := refreshRepo.CountActiveSessionsByUserID(ctx, user.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to count active sessions")
		}
		if activeSessions >= srv.maxActiveSessions {
			return nil, errors.Wrap(domainerrors.ErrSessionLimitExceeded, "active session limit exceeded")
		}
	}

	accessToken, refreshToken, err := srv.tokenService.GenerateTokens(user.ID, user.Role.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate tokens")
	}

	newRefreshToken := &entity.RefreshToken{
		UserID:    user.ID,
		TokenHash: srv.tokenService.HashToken(refreshToken),
		ExpiresAt: srv.now().Add(srv.tokenService.GetRefreshTokenDuration()),
	}
	if err := refreshRepo.CreateRefreshToken(ctx, newRefreshToken); err != nil {
		return nil, errors.Wrap(err, "failed to store refresh token")
	}

	return &usecase.AuthOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// publish emits an account event. Failures are logged and never reach the caller.
func (srv *authService) publish(ctx context.Context, eventType string, userID uuid.UUID, email string) {
	if srv.publisher == nil {
		return
	}

	event := &service.AccountEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       eventType,
		UserID:     userID.String(),
		Email:      email,
		OccurredAt: srv.now().UTC(),
	}
	if err := srv.publisher.PublishAccountEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish account event",
			slog.String("type", eventType), slog.Any("user_id", userID), slog.Any("error", err))
	}
}
