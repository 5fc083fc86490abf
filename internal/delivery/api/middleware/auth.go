package middleware

import (
	"log/slog"
	"strings"

	deliverycontext "lavra/internal/delivery/context"
	"lavra/internal/domain/service"

	"github.com/labstack/echo/v4"
)

const bearerPrefix = "Bearer "

// AuthMiddleware resolves the caller's identity from an access token.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, logger: logger}
}

// AttachIdentity validates "Authorization: Bearer <access token>" and, when valid, stores the
// user on the request context. Requests without a valid token pass through anonymously;
// protected operations check for the identity themselves.
func (m *AuthMiddleware) AttachIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return next(c)
		}

		tokenString, found := strings.CutPrefix(authHeader, bearerPrefix)
		if !found || tokenString == "" {
			m.log(c).Debug("Ignoring malformed authorization header")

			return next(c)
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString, service.TokenTypeAccess)
		if err != nil {
			m.log(c).Debug("Ignoring invalid access token", slog.Any("error", err))

			return next(c)
		}

		ctx := deliverycontext.WithIdentity(c.Request().Context(), claims.UserID, claims.Role)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

func (m *AuthMiddleware) log(c echo.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)
}
