// Package config loads and validates Daybook backend configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/daybook-app/daybook-backend/internal/api"
	"github.com/daybook-app/daybook-backend/pkg/store"
)

// Environment names recognized by the backend.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config represents the Daybook backend configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DAYBOOK_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Environment selects runtime behavior. "production" suppresses
	// diagnostic details in error responses. Default: development.
	Environment string `mapstructure:"environment" yaml:"environment"`

	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the backing database (SQLite or PostgreSQL).
	Database store.Config `mapstructure:"database" yaml:"database"`

	// API contains HTTP API server configuration
	API api.Config `mapstructure:"api" yaml:"api"`

	// Bootstrap tunes cold start initialization for the serverless entry point
	Bootstrap BootstrapConfig `mapstructure:"bootstrap" yaml:"bootstrap"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Admin contains initial admin user configuration for bootstrap.
	// This is used by 'daybookd init' to set up the first admin user.
	Admin AdminConfig `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// BootstrapConfig tunes the cold start initializer used by the serverless
// entry point. Zero values fall back to the initializer's built-in defaults.
type BootstrapConfig struct {
	// ConnectAttempts is the number of database connection attempts per
	// initialization. Default: 3.
	ConnectAttempts int `mapstructure:"connect_attempts" yaml:"connect_attempts"`

	// ConnectTimeout bounds each individual connection attempt. Default: 10s.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`

	// BackoffBase is the delay before the second attempt; it doubles per
	// attempt. Default: 1s.
	BackoffBase time.Duration `mapstructure:"backoff_base" yaml:"backoff_base"`

	// BackoffMax caps the backoff delay between attempts. Default: 5s.
	BackoffMax time.Duration `mapstructure:"backoff_max" yaml:"backoff_max"`

	// FailureCooldown is how long a failed initialization is cached before a
	// new attempt is allowed. Default: 30s.
	FailureCooldown time.Duration `mapstructure:"failure_cooldown" yaml:"failure_cooldown"`
}

// MetricsConfig controls Prometheus metrics exposure.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and /metrics is served.
	// Default: false (opt-in).
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AdminConfig holds the initial admin user created by 'daybookd init'.
type AdminConfig struct {
	// Username of the initial admin account. Default: "admin".
	Username string `mapstructure:"username" yaml:"username"`

	// Email of the initial admin account. Optional.
	Email string `mapstructure:"email" yaml:"email"`
}

// IsProduction reports whether the backend runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DAYBOOK_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		applyEnvOverrides(v, cfg)
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  daybookd init\n\n"+
				"Or specify a custom config file:\n"+
				"  daybookd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  daybookd init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Restricted permissions since config may hold database credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use DAYBOOK_ prefix and underscores
	// Example: DAYBOOK_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DAYBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/daybook/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// applyEnvOverrides applies a handful of common environment overrides when no
// config file is present. AutomaticEnv only resolves keys viper has seen, so
// the serverless entry point, which never ships a config file, reads these
// explicitly.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if env := v.GetString("environment"); env != "" {
		cfg.Environment = env
	}
	if level := v.GetString("logging.level"); level != "" {
		cfg.Logging.Level = strings.ToUpper(level)
	}
	if dbType := v.GetString("database.type"); dbType != "" {
		cfg.Database.Type = store.DatabaseType(dbType)
	}
	if host := v.GetString("database.postgres.host"); host != "" {
		cfg.Database.Postgres.Host = host
	}
	if port := v.GetInt("database.postgres.port"); port != 0 {
		cfg.Database.Postgres.Port = port
	}
	if name := v.GetString("database.postgres.database"); name != "" {
		cfg.Database.Postgres.Database = name
	}
	if user := v.GetString("database.postgres.user"); user != "" {
		cfg.Database.Postgres.User = user
	}
	if password := v.GetString("database.postgres.password"); password != "" {
		cfg.Database.Postgres.Password = password
	}
	if sslMode := v.GetString("database.postgres.sslmode"); sslMode != "" {
		cfg.Database.Postgres.SSLMode = sslMode
	}
	if path := v.GetString("database.sqlite.path"); path != "" {
		cfg.Database.SQLite.Path = path
	}
	if attempts := v.GetInt("bootstrap.connect_attempts"); attempts != 0 {
		cfg.Bootstrap.ConnectAttempts = attempts
	}
	if d := v.GetDuration("bootstrap.connect_timeout"); d != 0 {
		cfg.Bootstrap.ConnectTimeout = d
	}
	if d := v.GetDuration("bootstrap.backoff_base"); d != 0 {
		cfg.Bootstrap.BackoffBase = d
	}
	if d := v.GetDuration("bootstrap.backoff_max"); d != 0 {
		cfg.Bootstrap.BackoffMax = d
	}
	if d := v.GetDuration("bootstrap.failure_cooldown"); d != 0 {
		cfg.Bootstrap.FailureCooldown = d
	}
	if v.GetString("metrics.enabled") != "" {
		cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	}
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "daybook")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "daybook")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
