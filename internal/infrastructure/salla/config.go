package salla

import "errors"

// Config holds credentials and endpoints for the Salla open platform.
type Config struct {
	// ClientID is the application client ID from the Salla partner portal
	ClientID string
	// ClientSecret is the application client secret
	ClientSecret string
	// APIBaseURL is the base URL for the merchant admin API
	APIBaseURL string
	// AccountsBaseURL is the base URL of the accounts service hosting the
	// OAuth token endpoint
	AccountsBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// ProductionAPIURL is the production admin API endpoint
	ProductionAPIURL = "https://api.salla.dev/admin/v2"
	// ProductionAccountsURL is the production accounts service endpoint
	ProductionAccountsURL = "https://accounts.salla.sa"

	// tokenPath is the OAuth token-exchange path on the accounts service
	tokenPath = "/oauth2/token"
)

// Errors for Salla configuration
var (
	ErrConfigMissingClientID     = errors.New("salla: client ID is required")
	ErrConfigMissingClientSecret = errors.New("salla: client secret is required")
)

// NewConfig creates a new Salla configuration with production defaults
func NewConfig(clientID, clientSecret string) *Config {
	return &Config{
		ClientID:        clientID,
		ClientSecret:    clientSecret,
		APIBaseURL:      ProductionAPIURL,
		AccountsBaseURL: ProductionAccountsURL,
		TimeoutSeconds:  15,
	}
}

// Validate validates the configuration and fills endpoint defaults
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return ErrConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrConfigMissingClientSecret
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = ProductionAPIURL
	}
	if c.AccountsBaseURL == "" {
		c.AccountsBaseURL = ProductionAccountsURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}
