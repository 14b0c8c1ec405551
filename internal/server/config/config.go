// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"time"

	"github.com/threelizards/safe-variables/internal/cryptox"
	"github.com/threelizards/safe-variables/internal/server/auth"
)

// Config holds runtime settings for the vault server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx) or a SQLite path/URI.
//   - SecretKey: HMAC secret for signing session tokens (HS256).
//   - EncryptionKey: key for the secret-value cipher; must decode to 32 bytes.
//   - SessionLifetime: validity of issued session tokens.
//   - RateLimitPurgeInterval: how often expired rate-limit windows are swept.
//   - ShutdownTimeout: grace period for draining requests on shutdown.
type Config struct {
	EndpointAddr           string
	DatabaseDSN            string
	SecretKey              string
	EncryptionKey          string
	SessionLifetime        time.Duration
	RateLimitPurgeInterval time.Duration
	ShutdownTimeout        time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DatabaseDSN = "file:vault.db"
	c.SecretKey = "secretKey"
	c.EncryptionKey = "0123456789abcdef0123456789abcdef"
	c.SessionLifetime = auth.DefaultSessionLifetime
	c.RateLimitPurgeInterval = 5 * time.Minute
	c.ShutdownTimeout = 10 * time.Second
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.EndpointAddr == "" {
		return errors.New("endpoint address is required")
	}
	if c.DatabaseDSN == "" {
		return errors.New("database DSN is required")
	}
	if c.SecretKey == "" {
		return errors.New("secret key is required")
	}
	if len(c.EncryptionKey) != cryptox.KeySize {
		return errors.New("encryption key must be exactly 32 bytes")
	}
	if c.SessionLifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
