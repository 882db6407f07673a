package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
)

// Envelope is the standard response body: {status, data, message}.
type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteSuccess writes a success envelope with the given payload.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Status: "success", Data: data})
}

// WriteError writes an AppError as an error envelope with the status code
// mapped from its error code.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	writeJSON(w, statusFromCode(appErr.Code), Envelope{
		Status:  "error",
		Data:    appErr.Details,
		Message: appErr.Message,
	})
}

// statusFromCode maps ErrorCode to HTTP status code
func statusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired:
		return http.StatusBadRequest

	// 401 Unauthorized. Credential failures land here too, and on purpose
	// share the same status as session failures.
	case apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeSessionExpired,
		apperrors.ErrCodeInvalidCredential,
		apperrors.ErrCodeExpiredCredential:
		return http.StatusUnauthorized

	// 403 Forbidden
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden

	// 404 Not Found
	case apperrors.ErrCodeNotFound,
		apperrors.ErrCodeNotRegistered:
		return http.StatusNotFound

	// 409 Conflict
	case apperrors.ErrCodeAlreadyRegistered,
		apperrors.ErrCodeActivityFull,
		apperrors.ErrCodeActivityNotOpen,
		apperrors.ErrCodeInvalidTransition:
		return http.StatusConflict

	// 429 Too Many Requests
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 503 Service Unavailable
	case apperrors.ErrCodeStoreUnavailable,
		apperrors.ErrCodeDatabase:
		return http.StatusServiceUnavailable

	case apperrors.ErrCodeInternal:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
