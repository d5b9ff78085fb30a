// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache, locks and the provisioning stream (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Public base URL used when building tracking short links
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting on the public click endpoint
	RateLimitRedirectEnabled bool `env:"RATE_LIMIT_REDIRECT_ENABLED" envDefault:"true"`
	RateLimitRedirectRPS     int  `env:"RATE_LIMIT_REDIRECT_RPS" envDefault:"100"`
	RateLimitRedirectBurst   int  `env:"RATE_LIMIT_REDIRECT_BURST" envDefault:"20"`

	// Auth: HS256 secret shared with the hosted auth provider
	JWTSecret string `env:"JWT_SECRET,required"`

	// Tracking links
	QRServiceURL      string `env:"QR_SERVICE_URL" envDefault:"https://api.qrserver.com/v1/create-qr-code/"`
	VisitorHashSecret string `env:"VISITOR_HASH_SECRET,required"`

	// Admin: accounts under this domain can only be disabled by callers from the same domain
	ProtectedEmailDomain string `env:"PROTECTED_EMAIL_DOMAIN" envDefault:""`

	// Negotiation round cap; 0 disables the check
	NegotiationMaxRounds int `env:"NEGOTIATION_MAX_ROUNDS" envDefault:"0"`

	// Accept de-duplication lock
	AcceptLockTTL time.Duration `env:"ACCEPT_LOCK_TTL" envDefault:"15s"`

	// Link provisioning queue
	ProvisioningEnabled     bool          `env:"PROVISIONING_ENABLED" envDefault:"true"`
	ProvisioningMaxAttempts int           `env:"PROVISIONING_MAX_ATTEMPTS" envDefault:"5"`
	ProvisioningClaimIdle   time.Duration `env:"PROVISIONING_CLAIM_IDLE" envDefault:"2m"`

	// Comma-separated origins allowed on the authenticated API
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	if c.NegotiationMaxRounds < 0 {
		return fmt.Errorf("NEGOTIATION_MAX_ROUNDS must be >= 0, got %d", c.NegotiationMaxRounds)
	}
	if c.ProvisioningMaxAttempts < 1 {
		return fmt.Errorf("PROVISIONING_MAX_ATTEMPTS must be >= 1, got %d", c.ProvisioningMaxAttempts)
	}
	if len(c.VisitorHashSecret) < 16 {
		return fmt.Errorf("VISITOR_HASH_SECRET must be at least 16 bytes")
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
