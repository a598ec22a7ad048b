package errprocess

import (
	"errors"
	"fmt"
	"net/http"

	"recruit_chat_service/pkg/logger"
)

// Code error category shared by the REST and websocket transports
type Code string

const (
	// CodeValidation malformed or missing fields
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeNotFound conversation, message or user absent
	CodeNotFound Code = "NOT_FOUND"
	// CodeForbidden non-participant access or wrong-party action
	CodeForbidden Code = "FORBIDDEN"
	// CodeConflict self conversation or invalid state transition
	CodeConflict Code = "CONFLICT"
	// CodeUnauthorized missing or invalid credential
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeRateLimited too many events on one connection
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeInternal unexpected store or transport failure
	CodeInternal Code = "INTERNAL"
)

// GenericInternalMessage returned to callers instead of internal details
const GenericInternalMessage = "internal server error"

// AppError categorized error
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap expose the cause to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New create an AppError
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Wrap create an AppError keeping the cause
func Wrap(code Code, msg string, cause error) *AppError {
	return &AppError{Code: code, Message: msg, Cause: cause}
}

// Validation create a validation error
func Validation(msg string) *AppError { return New(CodeValidation, msg) }

// NotFound create a not found error
func NotFound(msg string) *AppError { return New(CodeNotFound, msg) }

// Forbidden create a forbidden error
func Forbidden(msg string) *AppError { return New(CodeForbidden, msg) }

// Conflict create a conflict error
func Conflict(msg string) *AppError { return New(CodeConflict, msg) }

// Unauthorized create an unauthorized error
func Unauthorized(msg string) *AppError { return New(CodeUnauthorized, msg) }

// Internal wrap an unexpected failure
func Internal(cause error) *AppError {
	return Wrap(CodeInternal, GenericInternalMessage, cause)
}

// CodeOf category of err, INTERNAL for anything uncategorized
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Public message safe to show to the caller
func Public(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != CodeInternal {
		return appErr.Message
	}
	return GenericInternalMessage
}

// HTTPStatus map a code to its HTTP status
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return Internal(errors.New(errMsg))
}
