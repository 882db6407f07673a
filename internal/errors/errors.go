package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"

	// QR credential. Kept deliberately coarse: callers must not be able to
	// tell a bad signature apart from a revoked signing session.
	ErrCodeInvalidCredential ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeExpiredCredential ErrorCode = "EXPIRED_CREDENTIAL"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"

	// Participation lifecycle
	ErrCodeAlreadyRegistered ErrorCode = "ALREADY_REGISTERED"
	ErrCodeActivityFull      ErrorCode = "ACTIVITY_FULL"
	ErrCodeActivityNotOpen   ErrorCode = "ACTIVITY_NOT_OPEN"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase         ErrorCode = "DATABASE_ERROR"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func SessionExpired() *AppError {
	return New(ErrCodeSessionExpired, "Session has expired")
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func InvalidCredential() *AppError {
	return New(ErrCodeInvalidCredential, "Credential could not be verified")
}

func ExpiredCredential() *AppError {
	return New(ErrCodeExpiredCredential, "Credential has expired")
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func NotRegistered() *AppError {
	return New(ErrCodeNotRegistered, "User is not registered for this activity")
}

func AlreadyRegistered() *AppError {
	return New(ErrCodeAlreadyRegistered, "User is already registered for this activity")
}

func ActivityFull() *AppError {
	return New(ErrCodeActivityFull, "Activity has reached its participant cap")
}

func ActivityNotOpen(status string) *AppError {
	return New(ErrCodeActivityNotOpen, fmt.Sprintf("Activity is not open for registration (status: %s)", status))
}

func InvalidTransition(current string) *AppError {
	return New(ErrCodeInvalidTransition, fmt.Sprintf("Transition not allowed from current state: %s", current))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func StoreUnavailable(store string, cause error) *AppError {
	return Wrap(ErrCodeStoreUnavailable, fmt.Sprintf("%s is unavailable", store), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
