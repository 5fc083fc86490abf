// Package response defines the JSON envelope used by every non-GraphQL endpoint.
package response

import (
	"net/http"

	deliverycontext "lavra/internal/delivery/context"
	domainerrors "lavra/internal/domain/errors"
	"lavra/internal/errors"

	"github.com/labstack/echo/v4"
)

// SuccessResponse wraps a payload with request metadata.
type SuccessResponse struct {
	Data any       `json:"data"`
	Meta *MetaInfo `json:"meta"`
}

// ErrorResponse wraps an error with request metadata.
type ErrorResponse struct {
	Error *ErrorInfo `json:"error"`
	Meta  *MetaInfo  `json:"meta"`
}

// ErrorInfo is the client-visible part of an AppError.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// MetaInfo represents response metadata
type MetaInfo struct {
	RequestID string `json:"request_id"`
}

// NewErrorResponse builds the envelope for appErr. Details never leave the server for
// 5xx and auth failures, where they could describe credentials or internals.
func NewErrorResponse(appErr domainerrors.AppError, requestID string) *ErrorResponse {
	info := &ErrorInfo{
		Code:    appErr.ErrorCode(),
		Message: appErr.Message(),
	}

	switch code := appErr.HTTPCode(); {
	case code >= http.StatusInternalServerError, code == http.StatusUnauthorized, code == http.StatusForbidden:
	default:
		if details := appErr.Details(); details != "" {
			info.Details = details
		}
	}

	return &ErrorResponse{
		Error: info,
		Meta:  &MetaInfo{RequestID: requestID},
	}
}

// Success writes data inside the success envelope.
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, SuccessResponse{
		Data: data,
		Meta: &MetaInfo{RequestID: deliverycontext.GetRequestID(c)},
	})
}

// AppError writes appErr inside the error envelope with its own status code.
func AppError(c echo.Context, appErr domainerrors.AppError) error {
	return c.JSON(appErr.HTTPCode(), NewErrorResponse(appErr, deliverycontext.GetRequestID(c)))
}

// HandleAppError writes err when it carries an AppError and returns anything else unchanged.
func HandleAppError(c echo.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return AppError(c, appErr)
	}

	return errors.WithStack(err)
}
