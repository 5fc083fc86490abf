package graphql

import (
	"context"
	"log/slog"

	deliverycontext "lavra/internal/delivery/context"
	domainerrors "lavra/internal/domain/errors"
	"lavra/internal/errors"
)

// resolverError is reported to clients with its stable message and an extensions.code.
type resolverError struct {
	code    string
	message string
	details string
}

func (e *resolverError) Error() string {
	return e.message
}

// Extensions is picked up by graphql-go and rendered under "extensions".
func (e *resolverError) Extensions() map[string]any {
	ext := map[string]any{"code": e.code}
	if e.details != "" {
		ext["details"] = e.details
	}

	return ext
}

// toResolverError hides everything but the code and message of domain errors.
// Anything else is logged and reported as INTERNAL_ERROR.
func (r *Resolver) toResolverError(ctx context.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) && appErr.HTTPCode() < 500 {
		return &resolverError{
			code:    appErr.ErrorCode(),
			message: appErr.Message(),
			details: appErr.Details(),
		}
	}

	deliverycontext.GetLoggerOrDefault(ctx, r.logger).Error("GraphQL resolver failed", slog.Any("error", err))

	code := domainerrors.ErrInternalError.ErrorCode()
	if appErr != nil {
		code = appErr.ErrorCode()
	}

	return &resolverError{
		code:    code,
		message: domainerrors.ErrInternalError.Message(),
	}
}
