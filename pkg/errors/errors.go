package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the error currency of the API: a stable code and message for
// clients plus an HTTP status, with the underlying cause kept server-side.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy carrying err as the internal cause. The shared
// sentinel stays untouched.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Sentinels shared across the application. Handlers compare against these
// with errors.Is; response rendering picks up code and status from them.
var (
	ErrUnauthorized = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)

	// ErrInvalidCredentials is deliberately vague: unknown email and wrong
	// password must be indistinguishable to the caller.
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)

	ErrForbidden      = New("FORBIDDEN", "Permission denied", http.StatusForbidden)
	ErrNotFound       = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrBadRequest     = New("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrInternalServer = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)

	// ErrGatewayUnavailable hides payment-processor detail behind a retryable
	// message.
	ErrGatewayUnavailable = New("PAYMENT_GATEWAY_UNAVAILABLE", "Payment could not be processed, please try again later", http.StatusBadGateway)
)

// New builds an AppError with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

// NewBadRequest builds a 400 with a caller-facing message.
func NewBadRequest(message string) *AppError {
	return New(ErrBadRequest.Code, message, http.StatusBadRequest)
}

// NewConflict signals a business-rule violation (duplicate enrollment, course
// full, refund window closed, and similar).
func NewConflict(code, message string) *AppError {
	return New(code, message, http.StatusConflict)
}

// Wrap turns any error into a 500 AppError, keeping the original for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError extracts the AppError from err, or wraps it as an internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}
