// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application configuration from environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment
// variables. PortalEnabled gates the member portal; it is injected into
// handler construction rather than read from ambient global state so tests
// can vary it per case.
type Config struct {
	DBPath        string `env:"CLUB_DB_PATH" envDefault:"./data/club.db"`
	SessionSecret string `env:"CLUB_SESSION_SECRET,required"`
	ServerHost    string `env:"CLUB_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"CLUB_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"CLUB_ENV" envDefault:"development"`
	LogLevel      string `env:"CLUB_LOG_LEVEL" envDefault:"info"`
	UploadsDir    string `env:"CLUB_UPLOADS_DIR" envDefault:"./uploads"`
	PublicBaseURL string `env:"CLUB_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Member portal availability
	PortalEnabled bool `env:"CLUB_PORTAL_ENABLED" envDefault:"true"`

	// Cache configuration
	RedisURL     string `env:"CLUB_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"CLUB_CACHE_PREFIX" envDefault:"club:"`   // Redis key prefix
	CacheTTL     int    `env:"CLUB_CACHE_TTL" envDefault:"3600"`       // Default cache TTL in seconds
	CacheMaxSize int    `env:"CLUB_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// News feed ingestion
	FeedURL string `env:"CLUB_FEED_URL"` // RSS source for the portal news page

	// Seeding configuration
	DoSeed bool `env:"CLUB_DO_SEED" envDefault:"false"` // Enable database seeding
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// FeedEnabled returns true if a news feed source is configured.
func (c Config) FeedEnabled() bool {
	return c.FeedURL != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("CLUB_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("CLUB_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("CLUB_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character
// classes (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
