package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for invalid values using the struct
// validate tags plus a few cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Environment != "" && cfg.Environment != EnvDevelopment && cfg.Environment != EnvProduction {
		return fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Environment)
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if cfg.Bootstrap.ConnectAttempts < 0 {
		return fmt.Errorf("bootstrap: connect_attempts must not be negative")
	}
	if cfg.Bootstrap.BackoffBase < 0 || cfg.Bootstrap.BackoffMax < 0 {
		return fmt.Errorf("bootstrap: backoff durations must not be negative")
	}
	if cfg.Bootstrap.BackoffMax != 0 && cfg.Bootstrap.BackoffBase > cfg.Bootstrap.BackoffMax {
		return fmt.Errorf("bootstrap: backoff_base must not exceed backoff_max")
	}

	return nil
}
