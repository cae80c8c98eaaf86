package dto

import (
	"errors"
	"net/http"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Token lifecycle error codes
const (
	// ErrCodeTokenNotFound is used when a merchant has no stored token
	ErrCodeTokenNotFound = "ERR_TOKEN_NOT_FOUND"
	// ErrCodeTokenLockUnavailable is used when the refresh lock could not
	// be acquired within the retry budget
	ErrCodeTokenLockUnavailable = "ERR_TOKEN_LOCK_UNAVAILABLE"
	// ErrCodeTokenRefreshFailed is used when the token exchange failed
	ErrCodeTokenRefreshFailed = "ERR_TOKEN_REFRESH_FAILED"
	// ErrCodeTokenInvalidResponse is used when the provider returned an
	// unusable token payload
	ErrCodeTokenInvalidResponse = "ERR_TOKEN_INVALID_RESPONSE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,

	ErrCodeTokenNotFound:        http.StatusNotFound,
	ErrCodeTokenLockUnavailable: http.StatusConflict,
	ErrCodeTokenRefreshFailed:   http.StatusBadGateway,
	ErrCodeTokenInvalidResponse: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not mapped.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// CodeForError maps a credential error to its API error code
func CodeForError(err error) string {
	switch {
	case errors.Is(err, credential.ErrTokenNotFound):
		return ErrCodeTokenNotFound
	case errors.Is(err, credential.ErrLockUnavailable):
		return ErrCodeTokenLockUnavailable
	case errors.Is(err, credential.ErrInvalidTokenResponse):
		return ErrCodeTokenInvalidResponse
	case errors.Is(err, credential.ErrRefreshFailed):
		return ErrCodeTokenRefreshFailed
	default:
		return ErrCodeInternal
	}
}
