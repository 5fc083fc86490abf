package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"lavra/config"
	"lavra/internal/domain/service"
	"lavra/internal/infra/auth"
	"lavra/internal/infra/persistence/memory"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessSecret  = "test_access_secret_key_very_long_for_testing"
	testRefreshSecret = "test_refresh_secret_key_very_long_for_testing"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(maxActiveSessions int) *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:        bcrypt.MinCost,
			AccessTokenTTL:    15 * time.Minute,
			RefreshTokenTTL:   7 * 24 * time.Hour,
			MaxActiveSessions: maxActiveSessions,
		},
	}
	cfg.SecretKey.Access = testAccessSecret
	cfg.SecretKey.Refresh = testRefreshSecret

	return cfg
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishAccountEvent(ctx context.Context, event *service.AccountEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *mockEventPublisher) Close() error {
	return m.Called().Error(0)
}

type authFixture struct {
	store        *memory.Store
	clock        *fakeClock
	tokenService service.TokenService
	hasher       service.PasswordHasher
	auth         *authService
	profiles     *profileService
	sessions     *sessionService
}

func newAuthFixture(t *testing.T, maxActiveSessions int, publisher service.EventPublisher) *authFixture {
	t.Helper()

	clock := &fakeClock{now: time.Now()}
	store := memory.NewStore(memory.WithClock(clock.Now))
	cfg := newTestConfig(maxActiveSessions)

	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)
	hasher := auth.NewBcryptHasherWithCost(bcrypt.MinCost)
	logger := newDiscardLogger()

	authSrv, ok := NewAuthService(AuthServiceParams{
		TxManager:        store,
		UserRepo:         store.UserRepo(),
		RefreshTokenRepo: store.RefreshTokenRepo(),
		Hasher:           hasher,
		TokenService:     tokenService,
		Publisher:        publisher,
		Config:           cfg,
		Logger:           logger,
	}).(*authService)
	require.True(t, ok)
	authSrv.now = clock.Now

	profileSrv, ok := NewProfileService(ProfileServiceParams{
		TxManager: store,
		UserRepo:  store.UserRepo(),
		Logger:    logger,
	}).(*profileService)
	require.True(t, ok)

	sessionSrv, ok := NewSessionService(SessionServiceParams{
		RefreshTokenRepo: store.RefreshTokenRepo(),
		Logger:           logger,
	}).(*sessionService)
	require.True(t, ok)

	return &authFixture{
		store:        store,
		clock:        clock,
		tokenService: tokenService,
		hasher:       hasher,
		auth:         authSrv,
		profiles:     profileSrv,
		sessions:     sessionSrv,
	}
}
