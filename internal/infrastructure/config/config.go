package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Salla        SallaConfig
	TokenRefresh TokenRefreshConfig
	Sweeper      SweeperConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the token read cache
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// SallaConfig holds Salla platform API settings
type SallaConfig struct {
	ClientID        string
	ClientSecret    string
	APIBaseURL      string
	AccountsBaseURL string
	TimeoutSeconds  int
}

// TokenRefreshConfig holds token lifecycle tuning
type TokenRefreshConfig struct {
	RefreshWindow         time.Duration // margin before expiry triggering refresh
	LockTimeout           time.Duration // staleness timeout for the refresh lock
	MaxRetries            int
	RetryBackoff          time.Duration
	ForcedRefreshInterval time.Duration // refresh at least this often regardless of expiry
}

// SweeperConfig holds the proactive token sweep schedule
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with OPSDESK_ prefix (e.g., OPSDESK_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("OPSDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
		},
		Salla: SallaConfig{
			ClientID:        v.GetString("salla.client_id"),
			ClientSecret:    v.GetString("salla.client_secret"),
			APIBaseURL:      v.GetString("salla.api_base_url"),
			AccountsBaseURL: v.GetString("salla.accounts_base_url"),
			TimeoutSeconds:  v.GetInt("salla.timeout_seconds"),
		},
		TokenRefresh: TokenRefreshConfig{
			RefreshWindow:         v.GetDuration("token_refresh.refresh_window"),
			LockTimeout:           v.GetDuration("token_refresh.lock_timeout"),
			MaxRetries:            v.GetInt("token_refresh.max_retries"),
			RetryBackoff:          v.GetDuration("token_refresh.retry_backoff"),
			ForcedRefreshInterval: v.GetDuration("token_refresh.forced_refresh_interval"),
		},
		Sweeper: SweeperConfig{
			Enabled:  v.GetBool("sweeper.enabled"),
			Interval: v.GetDuration("sweeper.interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "opsdesk-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "opsdesk"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Salla.APIBaseURL == "" {
		cfg.Salla.APIBaseURL = "https://api.salla.dev/admin/v2"
	}
	if cfg.Salla.AccountsBaseURL == "" {
		cfg.Salla.AccountsBaseURL = "https://accounts.salla.sa"
	}
	if cfg.Salla.TimeoutSeconds == 0 {
		cfg.Salla.TimeoutSeconds = 15
	}
	if cfg.TokenRefresh.RefreshWindow == 0 {
		cfg.TokenRefresh.RefreshWindow = 48 * time.Hour
	}
	if cfg.TokenRefresh.LockTimeout == 0 {
		cfg.TokenRefresh.LockTimeout = 30 * time.Second
	}
	if cfg.TokenRefresh.MaxRetries == 0 {
		cfg.TokenRefresh.MaxRetries = 3
	}
	if cfg.TokenRefresh.RetryBackoff == 0 {
		cfg.TokenRefresh.RetryBackoff = time.Second
	}
	if cfg.TokenRefresh.ForcedRefreshInterval == 0 {
		cfg.TokenRefresh.ForcedRefreshInterval = 7 * 24 * time.Hour
	}
	if cfg.Sweeper.Interval == 0 {
		cfg.Sweeper.Interval = time.Hour
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.TokenRefresh.RefreshWindow <= 0 {
		return fmt.Errorf("token_refresh.refresh_window must be positive")
	}
	if c.TokenRefresh.ForcedRefreshInterval < c.TokenRefresh.RefreshWindow {
		return fmt.Errorf("token_refresh.forced_refresh_interval (%s) cannot be shorter than token_refresh.refresh_window (%s)",
			c.TokenRefresh.ForcedRefreshInterval, c.TokenRefresh.RefreshWindow)
	}

	if c.App.Env == "production" {
		if c.Salla.ClientID == "" || c.Salla.ClientSecret == "" {
			return fmt.Errorf("salla.client_id and salla.client_secret are required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for the Redis connection
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
