package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"lavra/config"
	"lavra/internal/delivery/api/response"
	deliverycontext "lavra/internal/delivery/context"
	domainerrors "lavra/internal/domain/errors"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo/v4"
)

const (
	defaultRateLimitRequests = 60
	defaultRateLimitWindow   = time.Minute
)

// NewRateLimit limits requests per client IP with a sliding window counter.
func NewRateLimit(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	requests := cfg.Requests
	if requests <= 0 {
		requests = defaultRateLimitRequests
	}
	window := cfg.Window
	if window <= 0 {
		window = defaultRateLimitWindow
	}

	limiter := httprate.Limit(requests, window,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(writeRateLimited),
	)

	return echo.WrapMiddleware(limiter)
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}

	return "ip:" + key, nil
}

// writeRateLimited renders the standard error envelope outside of echo's context.
func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(http.StatusTooManyRequests)

	requestID := deliverycontext.GetRequestIDFromContext(r.Context())
	_ = json.NewEncoder(w).Encode(response.NewErrorResponse(domainerrors.ErrTooManyRequests, requestID))
}
