// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Hasher, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.

A missing secret (pepper, signing secret) or an invalid hash cost is a
[ErrConfiguration] and must abort startup.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// ErrConfiguration marks a fatal, startup-time configuration problem.
var ErrConfiguration = errors.New("configuration error")

// # Configuration Schema

// Config holds all runtime configuration for the account API server.
type Config struct {

	// Server settings
	ServerPort     string   `env:"SERVER_PORT"      envDefault:"8080"`
	Environment    string   `env:"ENVIRONMENT"      envDefault:"development"`
	Debug          bool     `env:"DEBUG"            envDefault:"false"`
	APIVersion     string   `env:"API_VERSION"      envDefault:"/api/v1"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"  envDefault:"*" envSeparator:","`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Password hashing. Both values are mandatory; there is no safe default.
	Pepper     string `env:"PEPPER,required,notEmpty"`
	SaltRounds int    `env:"SALT_ROUNDS,required,notEmpty"`

	// Access token signing
	AccessTokenSecret string        `env:"ACCESS_TOKEN_SECRET,required,notEmpty"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_EXPIRE" envDefault:"15m"`

	// Outbound mail (SMTP). Mail is disabled when host or credentials are empty.
	EmailHost       string `env:"EMAIL_HOST"`
	EmailPort       int    `env:"EMAIL_PORT"        envDefault:"587"`
	SenderEmail     string `env:"SENDER_EMAIL"`
	SenderPassword  string `env:"SENDER_PASSWORD"`
	EmailCC         string `env:"EMAIL_CC"`
	EmailSkipVerify bool   `env:"EMAIL_SKIP_VERIFY" envDefault:"false"`

	// Password reset throttling (per email, fixed window in Redis)
	ResetRequestLimit int           `env:"RESET_REQUEST_LIMIT" envDefault:"5"`
	ResetVerifyLimit  int           `env:"RESET_VERIFY_LIMIT"  envDefault:"5"`
	ResetLimitWindow  time.Duration `env:"RESET_LIMIT_WINDOW"  envDefault:"15m"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse environment variables: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Pepper == "" {
		return fmt.Errorf("%w: PEPPER must not be empty", ErrConfiguration)
	}
	if c.SaltRounds < bcrypt.MinCost || c.SaltRounds > bcrypt.MaxCost {
		return fmt.Errorf("%w: SALT_ROUNDS must be between %d and %d", ErrConfiguration, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.AccessTokenSecret == "" {
		return fmt.Errorf("%w: ACCESS_TOKEN_SECRET must not be empty", ErrConfiguration)
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("%w: ACCESS_TOKEN_EXPIRE must be positive", ErrConfiguration)
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Origins returns the configured CORS allow-list.
func (c *Config) Origins() []string {
	return c.AllowedOrigins
}

// MailEnabled reports whether enough SMTP settings are present to send mail.
func (c *Config) MailEnabled() bool {
	return c.EmailHost != "" && c.SenderEmail != "" && c.SenderPassword != ""
}
