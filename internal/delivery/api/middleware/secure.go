package middleware

import (
	"log/slog"
	"net/http"

	"lavra/config"
	"lavra/internal/domain/constants"

	"github.com/labstack/echo/v4"
	"github.com/unrolled/secure"
)

// NewSecureHeaders sets the usual hardening headers. HTTPS redirects only apply in production.
func NewSecureHeaders(cfg *config.Config, logger *slog.Logger) echo.MiddlewareFunc {
	isProduction := cfg.Env.Env == constants.EnvProduction

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           isProduction,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            stsSeconds(isProduction),
		IsDevelopment:         !isProduction,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := secureMiddleware.Process(c.Response(), c.Request()); err != nil {
				// An HTTPS redirect has already been written.
				if c.Response().Committed {
					return nil
				}
				logger.Warn("secure headers blocked request", slog.Any("error", err))

				return echo.NewHTTPError(http.StatusBadRequest, "request blocked")
			}

			return next(c)
		}
	}
}

func stsSeconds(isProduction bool) int64 {
	if !isProduction {
		return 0
	}

	return 31536000
}
