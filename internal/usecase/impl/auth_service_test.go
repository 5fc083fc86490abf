package impl

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lavra/internal/domain/entity"
	domainerrors "lavra/internal/domain/errors"
	"lavra/internal/domain/repository"
	"lavra/internal/domain/service"
	"lavra/internal/errors"
	"lavra/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func registerInput(email string) *usecase.RegisterInput {
	return &usecase.RegisterInput{Email: email, Password: "secret1", Name: "Ana"}
}

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()
	phone := "+351 912 345 678"

	input := registerInput("a@x.com")
	input.Phone = &phone
	out, err := f.auth.Register(ctx, input)
	require.NoError(t, err)

	require.NotNil(t, out.User)
	assert.NotEqual(t, uuid.Nil, out.User.ID)
	assert.Equal(t, "a@x.com", out.User.Email)
	assert.Equal(t, "Ana", out.User.Name)
	assert.Equal(t, &phone, out.User.Phone)
	assert.Equal(t, entity.RoleUser, out.User.Role)
	assert.Equal(t, entity.UserStatusActive, out.User.Status)
	assert.NotEqual(t, "secret1", out.User.PasswordHash)
	assert.True(t, f.hasher.Check("secret1", out.User.PasswordHash))

	accessClaims, err := f.tokenService.ValidateToken(out.AccessToken, service.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, accessClaims.UserID)
	assert.Equal(t, "USER", accessClaims.Role)

	refreshClaims, err := f.tokenService.ValidateToken(out.RefreshToken, service.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, refreshClaims.UserID)

	stored, err := f.store.RefreshTokenRepo().FindRefreshTokenByHash(ctx, f.tokenService.HashToken(out.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, stored.UserID)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	first, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, &usecase.RegisterInput{Email: "a@x.com", Password: "another1", Name: "Bruno"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrEmailAlreadyRegistered)

	// The existing account is untouched.
	user, err := f.store.UserRepo().FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, user.ID)
	assert.Equal(t, "Ana", user.Name)

	sessions, err := f.store.RefreshTokenRepo().CountActiveSessionsByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)
}

func TestAuthService_Register_PasswordOverBcryptLimit(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	input := registerInput("a@x.com")
	input.Password = strings.Repeat("a", 80)
	_, err := f.auth.Register(ctx, input)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_FAILED", appErr.ErrorCode())

	_, err = f.store.UserRepo().FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAuthService_Register_EmailIsCaseSensitive(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	lower, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)
	upper, err := f.auth.Register(ctx, registerInput("A@x.com"))
	require.NoError(t, err)

	assert.NotEqual(t, lower.User.ID, upper.User.ID)
}

func TestAuthService_Register_PublishesEvent(t *testing.T) {
	publisher := &mockEventPublisher{}
	f := newAuthFixture(t, 0, publisher)

	publisher.On("PublishAccountEvent", mock.Anything, mock.MatchedBy(func(event *service.AccountEvent) bool {
		return event.Type == service.EventUserRegistered && event.Email == "a@x.com"
	})).Return(nil).Once()

	out, err := f.auth.Register(context.Background(), registerInput("a@x.com"))
	require.NoError(t, err)
	require.NotNil(t, out)

	publisher.AssertExpectations(t)
}

func TestAuthService_Register_PublishFailureIsIgnored(t *testing.T) {
	publisher := &mockEventPublisher{}
	f := newAuthFixture(t, 0, publisher)

	publisher.On("PublishAccountEvent", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	out, err := f.auth.Register(context.Background(), registerInput("a@x.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, out.AccessToken)
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		out, err := f.auth.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, out.User.ID)
		assert.NotEqual(t, registered.RefreshToken, out.RefreshToken)

		claims, err := f.tokenService.ValidateToken(out.AccessToken, service.TokenTypeAccess)
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, claims.UserID)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, unknownErr := f.auth.Login(ctx, &usecase.LoginInput{Email: "nobody@x.com", Password: "secret1"})
		require.Error(t, unknownErr)
		assert.ErrorIs(t, unknownErr, domainerrors.ErrInvalidCredentials)

		_, wrongErr := f.auth.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "wrong"})
		require.Error(t, wrongErr)
		assert.ErrorIs(t, wrongErr, domainerrors.ErrInvalidCredentials)

		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	for _, status := range []entity.UserStatus{entity.UserStatusInactive, entity.UserStatusSuspended} {
		t.Run(status.String(), func(t *testing.T) {
			f := newAuthFixture(t, 0, nil)
			ctx := context.Background()

			registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
			require.NoError(t, err)

			user := registered.User
			user.Status = status
			require.NoError(t, f.store.UserRepo().Update(ctx, user))

			_, err = f.auth.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrAccountInactive)

			// A wrong password still reports bad credentials.
			_, err = f.auth.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "wrong"})
			assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
		})
	}
}

func TestAuthService_RefreshToken_RotatesOnce(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)

	rotated, err := f.auth.RefreshToken(ctx, registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, rotated.RefreshToken)
	assert.NotEqual(t, registered.AccessToken, rotated.AccessToken)
	assert.Equal(t, registered.User.ID, rotated.User.ID)

	_, err = f.tokenService.ValidateToken(rotated.AccessToken, service.TokenTypeAccess)
	require.NoError(t, err)

	_, err = f.auth.RefreshToken(ctx, registered.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	again, err := f.auth.RefreshToken(ctx, rotated.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, again.RefreshToken)

	sessions, err := f.store.RefreshTokenRepo().CountActiveSessionsByUserID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)
}

func TestAuthService_RefreshToken_Rejections(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
		{name: "access token", token: registered.AccessToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.RefreshToken(ctx, tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
		})
	}

	t.Run("signed but never stored", func(t *testing.T) {
		_, refresh, err := f.tokenService.GenerateTokens(registered.User.ID, "USER")
		require.NoError(t, err)

		_, err = f.auth.RefreshToken(ctx, refresh)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
	})
}

func TestAuthService_RefreshToken_StorageExpiryMatchesRefreshTTL(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	issuedAt := f.clock.Now()
	registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)

	stored, err := f.store.RefreshTokenRepo().FindRefreshTokenByHash(ctx, f.tokenService.HashToken(registered.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(f.tokenService.GetRefreshTokenDuration()), stored.ExpiresAt)

	claims, err := f.tokenService.ValidateToken(registered.RefreshToken, service.TokenTypeRefresh)
	require.NoError(t, err)
	assert.WithinDuration(t, stored.ExpiresAt, claims.ExpiresAt.Time, 5*time.Second)

	f.clock.Advance(f.tokenService.GetRefreshTokenDuration())

	_, err = f.auth.RefreshToken(ctx, registered.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAuthService_RefreshToken_InactiveOwner(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)

	user := registered.User
	user.Status = entity.UserStatusSuspended
	require.NoError(t, f.store.UserRepo().Update(ctx, user))

	_, err = f.auth.RefreshToken(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	// The failed rotation rolled back, so the row is still there.
	_, err = f.store.RefreshTokenRepo().FindRefreshTokenByHash(ctx, f.tokenService.HashToken(registered.RefreshToken))
	assert.NoError(t, err)
}

func TestAuthService_RefreshToken_ConcurrentRotationHasSingleWinner(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		failures  atomic.Int32
	)
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			if _, err := f.auth.RefreshToken(ctx, registered.RefreshToken); err != nil {
				if errors.Is(err, domainerrors.ErrInvalidToken) {
					failures.Add(1)
				}

				return
			}
			successes.Add(1)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(workers-1), failures.Load())

	sessions, err := f.store.RefreshTokenRepo().CountActiveSessionsByUserID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)
}

func TestAuthService_Logout(t *testing.T) {
	publisher := &mockEventPublisher{}
	publisher.On("PublishAccountEvent", mock.Anything, mock.Anything).Return(nil)
	f := newAuthFixture(t, 0, publisher)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)
	second, err := f.auth.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	ok, err := f.auth.Logout(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, token := range []string{registered.RefreshToken, second.RefreshToken} {
		_, err = f.auth.RefreshToken(ctx, token)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
	}

	// Access tokens are not revoked.
	_, err = f.tokenService.ValidateToken(second.AccessToken, service.TokenTypeAccess)
	require.NoError(t, err)

	ok, err = f.auth.Logout(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.auth.Logout(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)

	publisher.AssertCalled(t, "PublishAccountEvent", mock.Anything, mock.MatchedBy(func(event *service.AccountEvent) bool {
		return event.Type == service.EventUserLoggedOut && event.UserID == registered.User.ID.String()
	}))
}

func TestAuthService_SessionLimit(t *testing.T) {
	f := newAuthFixture(t, 2, nil)
	ctx := context.Background()
	login := &usecase.LoginInput{Email: "a@x.com", Password: "secret1"}

	registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)
	second, err := f.auth.Login(ctx, login)
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, login)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrSessionLimitExceeded)

	// Rotation replaces a session, so it is allowed at the limit.
	_, err = f.auth.RefreshToken(ctx, second.RefreshToken)
	require.NoError(t, err)

	sessions, err := f.store.RefreshTokenRepo().CountActiveSessionsByUserID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sessions)

	// Expired sessions no longer count.
	f.clock.Advance(f.tokenService.GetRefreshTokenDuration())
	_, err = f.auth.Login(ctx, login)
	require.NoError(t, err)
}

func TestAuthService_EndToEnd(t *testing.T) {
	f := newAuthFixture(t, 0, nil)
	ctx := context.Background()

	registered, err := f.auth.Register(ctx, registerInput("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", registered.User.Email)

	loggedIn, err := f.auth.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	rotated, err := f.auth.RefreshToken(ctx, loggedIn.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, loggedIn.RefreshToken, rotated.RefreshToken)

	_, err = f.auth.RefreshToken(ctx, loggedIn.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	ok, err := f.auth.Logout(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.auth.RefreshToken(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}
