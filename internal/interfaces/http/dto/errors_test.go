package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/backend/internal/domain/credential"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeTokenNotFound, http.StatusNotFound},
		{ErrCodeTokenLockUnavailable, http.StatusConflict},
		{ErrCodeTokenRefreshFailed, http.StatusBadGateway},
		{ErrCodeTokenInvalidResponse, http.StatusBadGateway},
		{"ERR_NEVER_SEEN", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"token not found", credential.ErrTokenNotFound, ErrCodeTokenNotFound},
		{"lock unavailable", credential.ErrLockUnavailable, ErrCodeTokenLockUnavailable},
		{"refresh failed", credential.ErrRefreshFailed, ErrCodeTokenRefreshFailed},
		{"invalid response", credential.ErrInvalidTokenResponse, ErrCodeTokenInvalidResponse},
		{"wrapped refresh failure", fmt.Errorf("%w: provider returned HTTP 400", credential.ErrRefreshFailed), ErrCodeTokenRefreshFailed},
		{"unknown", errors.New("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeForError(tt.err))
		})
	}
}

func TestResponseEnvelope(t *testing.T) {
	t.Run("success omits error", func(t *testing.T) {
		body, err := json.Marshal(NewSuccessResponse(map[string]string{"merchant_id": "m-1"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"data":{"merchant_id":"m-1"}}`, string(body))
	})

	t.Run("error omits data", func(t *testing.T) {
		body, err := json.Marshal(NewErrorResponse(ErrCodeTokenNotFound, "no token for merchant"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_TOKEN_NOT_FOUND","message":"no token for merchant"}}`, string(body))
	})
}
