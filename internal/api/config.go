package api

import (
	"os"
	"time"

	"github.com/daybook-app/daybook-backend/internal/api/auth"
	"github.com/daybook-app/daybook-backend/internal/logger"
)

// EnvAPISecret is the environment variable holding the JWT signing secret.
// When set, it takes precedence over the secret from the config file.
const EnvAPISecret = "DAYBOOK_API_SECRET"

// Config holds HTTP API server configuration.
type Config struct {
	// Enabled controls whether the standalone API server starts.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the TCP port the API server listens on. Default: 8080.
	Port int `mapstructure:"port" validate:"gte=0,lte=65535" yaml:"port"`

	// Host is the interface to bind. Empty means all interfaces.
	Host string `mapstructure:"host" yaml:"host"`

	// ReadTimeout is the maximum duration for reading a request. Default: 10s.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response. Default: 10s.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request. Default: 60s.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// JWT holds token signing configuration.
	JWT JWTConfig `mapstructure:"jwt" yaml:"jwt"`
}

// JWTConfig holds JWT token configuration for the API.
type JWTConfig struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	// Prefer setting it via the DAYBOOK_API_SECRET environment variable.
	Secret string `mapstructure:"secret" yaml:"secret,omitempty"`

	// AccessTokenDuration is the access token lifetime. Default: 15m.
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" yaml:"access_token_duration"`

	// RefreshTokenDuration is the refresh token lifetime. Default: 168h.
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" yaml:"refresh_token_duration"`
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.JWT.AccessTokenDuration == 0 {
		c.JWT.AccessTokenDuration = 15 * time.Minute
	}
	if c.JWT.RefreshTokenDuration == 0 {
		c.JWT.RefreshTokenDuration = 7 * 24 * time.Hour
	}
}

// GetJWTSecret returns the JWT secret, preferring the environment variable
// over the config file value.
func (c *Config) GetJWTSecret() string {
	if secret := os.Getenv(EnvAPISecret); secret != "" {
		if c.JWT.Secret != "" {
			logger.Warn("JWT secret from environment overrides config file value")
		}
		return secret
	}
	return c.JWT.Secret
}

// HasJWTSecret reports whether a JWT secret is configured anywhere.
func (c *Config) HasJWTSecret() bool {
	return c.GetJWTSecret() != ""
}

// JWTServiceConfig builds the auth service configuration from the API config.
func (c *Config) JWTServiceConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Secret:               c.GetJWTSecret(),
		AccessTokenDuration:  c.JWT.AccessTokenDuration,
		RefreshTokenDuration: c.JWT.RefreshTokenDuration,
	}
}
