package salla

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// maxResponseSize is the maximum allowed response size from the Salla API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client talks to the Salla accounts service and admin API.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Salla client with the given configuration
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}, nil
}

// ExchangeRefreshToken redeems a refresh token at the accounts token endpoint.
// The refresh token is consumed by the provider on receipt, so callers must
// not replay this call once a response has been received.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*credential.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("refresh_token", refreshToken)

	endpoint := strings.TrimRight(c.config.AccountsBaseURL, "/") + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("salla: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", credential.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("salla: failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Body is logged verbatim so provider error codes survive into
		// the operational logs.
		c.logger.Warn("Salla token endpoint returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("%w: token endpoint returned HTTP %d", credential.ErrRefreshFailed, resp.StatusCode)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: %v", credential.ErrInvalidTokenResponse, err)
	}

	if tokenResp.AccessToken == "" || tokenResp.RefreshToken == "" || tokenResp.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: missing access_token, refresh_token or expires_in", credential.ErrInvalidTokenResponse)
	}

	return &credential.TokenGrant{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
		TokenType:    tokenResp.TokenType,
		Scope:        tokenResp.Scope,
	}, nil
}

// doAPIRequest performs an authenticated request against the admin API and
// returns the raw response body.
func (c *Client) doAPIRequest(ctx context.Context, method, path, accessToken string, payload io.Reader) ([]byte, error) {
	endpoint := strings.TrimRight(c.config.APIBaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("salla: failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("salla: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("salla: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("Salla API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("salla: %s %s returned HTTP %d", method, path, resp.StatusCode)
	}

	return body, nil
}

// Ensure Client implements the token exchanger port
var _ credential.TokenExchanger = (*Client)(nil)
