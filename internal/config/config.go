// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Development defaults that must never reach production.
const (
	defaultDBPassword = "changeme"
	defaultJWTSecret  = "dev-only-jwt-secret-change-me"
)

// MinJWTSecretLength is the shortest HMAC key accepted in production.
const MinJWTSecretLength = 32

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port     string `env:"APP_PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"development"` // "development", "production", "testing"
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// PostgreSQL connection
	DBHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	DBPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	DBUser     string `env:"POSTGRES_USER" envDefault:"cmsmini"`
	DBPassword string `env:"POSTGRES_PASSWORD" envDefault:"changeme"`
	DBName     string `env:"POSTGRES_DB" envDefault:"cmsmini"`

	// Valkey (Redis-compatible cache and session registry)
	ValkeyHost     string `env:"VALKEY_HOST" envDefault:"localhost"`
	ValkeyPort     string `env:"VALKEY_PORT" envDefault:"6379"`
	ValkeyPassword string `env:"VALKEY_PASSWORD"`

	// Bearer tokens. JWTKeys maps key ids to secrets; JWTSecret is used under
	// the id "primary" when no map is given.
	JWTSecret      string            `env:"JWT_SECRET" envDefault:"dev-only-jwt-secret-change-me"`
	JWTKeys        map[string]string `env:"JWT_KEYS" envSeparator:"," envKeyValSeparator:":"`
	JWTActiveKey   string            `env:"JWT_ACTIVE_KEY"`
	JWTRevokedKeys []string          `env:"JWT_REVOKED_KEYS" envSeparator:","`
	JWTTTL         time.Duration     `env:"JWT_TTL" envDefault:"168h"`
	JWTIssuer      string            `env:"JWT_ISSUER" envDefault:"cmsmini"`

	// Initial admin account
	SeedAdmin     bool   `env:"SEED_ADMIN" envDefault:"true"`
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@cmsmini.local"`
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Login/register throttling, per client IP
	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" envDefault:"0.2"` // tokens per second
	LoginRateBurst int     `env:"LOGIN_RATE_BURST" envDefault:"5"`

	// Response cache lifetime for category endpoints
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"10m"`
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. A .env file in the working directory is
// loaded first when present. Returns an error if critical values are missing
// or unsafe in production mode.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.LoginRateLimit <= 0 || c.LoginRateBurst < 1 {
		return errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_BURST must be positive")
	}
	if len(c.JWTKeys) > 0 && c.JWTActiveKey != "" {
		if _, ok := c.JWTKeys[c.JWTActiveKey]; !ok {
			return fmt.Errorf("JWT_ACTIVE_KEY %q is not present in JWT_KEYS", c.JWTActiveKey)
		}
	}

	if c.Env != "production" {
		return nil
	}
	if c.DBPassword == "" || c.DBPassword == defaultDBPassword {
		return errors.New("POSTGRES_PASSWORD must be set in production")
	}
	if len(c.JWTKeys) == 0 {
		if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
		if len(c.JWTSecret) < MinJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d bytes long", MinJWTSecretLength)
		}
	}
	for kid, secret := range c.JWTKeys {
		if len(secret) < MinJWTSecretLength {
			return fmt.Errorf("JWT_KEYS entry %q must be at least %d bytes long", kid, MinJWTSecretLength)
		}
	}
	if c.SeedAdmin && c.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD must be set in production when SEED_ADMIN is enabled")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// ValkeyAddr returns the Valkey address (host:port).
func (c *Config) ValkeyAddr() string {
	return fmt.Sprintf("%s:%s", c.ValkeyHost, c.ValkeyPort)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SigningKeys returns the configured key ring as id → secret and the id of
// the key new tokens are signed with.
func (c *Config) SigningKeys() (map[string]string, string) {
	if len(c.JWTKeys) == 0 {
		return map[string]string{"primary": c.JWTSecret}, "primary"
	}
	keys := make(map[string]string, len(c.JWTKeys))
	for kid, secret := range c.JWTKeys {
		keys[kid] = secret
	}
	active := c.JWTActiveKey
	if active == "" {
		// Deterministic pick when no active key is named.
		for kid := range keys {
			if active == "" || kid < active {
				active = kid
			}
		}
	}
	return keys, active
}
