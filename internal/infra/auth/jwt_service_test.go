package auth

import (
	"testing"
	"time"

	"lavra/config"
	domainerrors "lavra/internal/domain/errors"
	"lavra/internal/domain/service"
	"lavra/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "test_access_secret_key_very_long_for_testing"
	testRefreshSecret = "test_refresh_secret_key_very_long_for_testing"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SecretKey.Access = testAccessSecret
	cfg.SecretKey.Refresh = testRefreshSecret

	return cfg
}

func TestJWTService_GenerateAndValidateTokens(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	userID := uuid.New()

	accessToken, refreshToken, err := jwtService.GenerateTokens(userID, "USER")
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.NotEqual(t, accessToken, refreshToken)

	accessClaims, err := jwtService.ValidateToken(accessToken, service.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, userID, accessClaims.UserID)
	assert.Equal(t, "USER", accessClaims.Role)
	assert.Equal(t, service.TokenTypeAccess, accessClaims.Type)

	refreshClaims, err := jwtService.ValidateToken(refreshToken, service.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, userID, refreshClaims.UserID)
	assert.Empty(t, refreshClaims.Role)
	assert.Equal(t, service.TokenTypeRefresh, refreshClaims.Type)
}

func TestJWTService_TokensIssuedTogetherAreDistinct(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	userID := uuid.New()
	_, firstRefresh, err := jwtService.GenerateTokens(userID, "USER")
	require.NoError(t, err)
	_, secondRefresh, err := jwtService.GenerateTokens(userID, "USER")
	require.NoError(t, err)

	assert.NotEqual(t, firstRefresh, secondRefresh)
}

func TestJWTService_RejectsWrongType(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	accessToken, refreshToken, err := jwtService.GenerateTokens(uuid.New(), "USER")
	require.NoError(t, err)

	// Secrets differ, so a token of one kind never verifies as the other.
	_, err = jwtService.ValidateToken(accessToken, service.TokenTypeRefresh)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))

	_, err = jwtService.ValidateToken(refreshToken, service.TokenTypeAccess)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))

	_, err = jwtService.ValidateToken(accessToken, "bogus")
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestJWTService_RejectsTypeClaimMismatch(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	// Signed with the refresh secret but claiming to be an access token.
	claims := &service.Claims{
		Type: service.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testRefreshSecret))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(forged, service.TokenTypeRefresh)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestJWTService_InvalidToken(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	for _, token := range []string{"", "invalid.token.string", "a.b"} {
		_, err := jwtService.ValidateToken(token, service.TokenTypeAccess)
		assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken), token)
	}
}

func TestJWTService_WrongSecret(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	other := newTestConfig()
	other.SecretKey.Refresh = "some_other_refresh_secret"
	otherService, err := NewJWTService(other)
	require.NoError(t, err)

	_, refreshToken, err := otherService.GenerateTokens(uuid.New(), "USER")
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(refreshToken, service.TokenTypeRefresh)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestJWTService_RejectsOtherSigningMethod(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	claims := &service.Claims{
		Type: service.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token, service.TokenTypeAccess)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestJWTService_Expiry(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth = &config.AuthConfig{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}

	issuedAt := time.Now()
	clock := issuedAt
	svc, err := newJWTService(cfg, func() time.Time { return clock })
	require.NoError(t, err)

	accessToken, refreshToken, err := svc.GenerateTokens(uuid.New(), "USER")
	require.NoError(t, err)

	clock = issuedAt.Add(2 * time.Minute)
	_, err = svc.ValidateToken(accessToken, service.TokenTypeAccess)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))

	_, err = svc.ValidateToken(refreshToken, service.TokenTypeRefresh)
	assert.NoError(t, err)

	clock = issuedAt.Add(2 * time.Hour)
	_, err = svc.ValidateToken(refreshToken, service.TokenTypeRefresh)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestJWTService_RefreshExpiryMatchesConfiguredDuration(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth = &config.AuthConfig{RefreshTokenTTL: 72 * time.Hour}

	jwtService, err := NewJWTService(cfg)
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, jwtService.GetRefreshTokenDuration())

	_, refreshToken, err := jwtService.GenerateTokens(uuid.New(), "USER")
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(refreshToken, service.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestJWTService_Defaults(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, jwtService.GetRefreshTokenDuration())
}

func TestJWTService_HashToken(t *testing.T) {
	jwtService, err := NewJWTService(newTestConfig())
	require.NoError(t, err)

	hash := jwtService.HashToken("token-a")
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, jwtService.HashToken("token-a"))
	assert.NotEqual(t, hash, jwtService.HashToken("token-b"))
}

func TestNewJWTService_SecretValidation(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
	}{
		{name: "missing access", access: "", refresh: testRefreshSecret},
		{name: "missing refresh", access: testAccessSecret, refresh: ""},
		{name: "equal secrets", access: testAccessSecret, refresh: testAccessSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.SecretKey.Access = tt.access
			cfg.SecretKey.Refresh = tt.refresh

			svc, err := NewJWTService(cfg)
			assert.Error(t, err)
			assert.Nil(t, svc)
		})
	}
}
