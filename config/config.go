package config

import (
	"errors"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: IDP, application, and authentication configuration
//   - database.go: Database and session cache configuration
//   - http.go: HTTP server and session cookie configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Log LogConfig

	// Identity provider and consuming application
	IDP IDPConfig
	App AppDetailsConfig

	// Authentication configuration
	Auth AuthConfig

	// Session configuration
	Session SessionConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Log.Sanitize()
	c.IDP.Sanitize()
	c.App.Sanitize()
	c.Auth.Sanitize()
	c.Session.Sanitize()
	c.HTTP.Sanitize()

	c.detectDevMode()
}

// Validate performs eager validation of required settings. Every problem is
// reported as a configuration error; the caller should treat any error as fatal.
func (c *AppConfig) Validate() error {
	var errs []error
	errs = append(errs, c.App.Validate()...)
	if c.Auth.UseExternalAuth {
		errs = append(errs, c.IDP.Validate()...)
	}
	errs = append(errs, c.HTTP.Validate()...)
	errs = append(errs, c.Session.Validate()...)
	return errors.Join(errs...)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
