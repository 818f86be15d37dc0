// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // streak timezones must resolve on minimal images
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	AI       AIConfig
	Auth     AuthConfig
	Progress ProgressConfig
	Syllabus SyllabusConfig
	Vault    VaultConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings.
// An empty URL runs the service on in-memory stores.
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// CacheConfig holds Redis connection settings.
type CacheConfig struct {
	URL         string
	SyllabusTTL int // seconds
}

// AIConfig holds platform-level provider keys, used when a learner has not
// stored a key of their own.
type AIConfig struct {
	Google     GoogleConfig
	OpenRouter OpenRouterConfig
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey string
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
}

// ProgressConfig holds progress ledger settings.
type ProgressConfig struct {
	Timezone      string // IANA zone whose midnight separates streak days
	MaxTxAttempts int
	RetryBackoff  int // milliseconds
}

// SyllabusConfig holds syllabus seeding settings.
type SyllabusConfig struct {
	SeedDir string
}

// VaultConfig holds settings for encrypting learner API keys at rest.
type VaultConfig struct {
	Secret string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:         envStr("LEARN_DATABASE_URL", ""),
			MaxConns:    envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns:    envInt("LEARN_DATABASE_MIN_CONNS", 5),
			AutoMigrate: envBool("LEARN_DATABASE_AUTO_MIGRATE", true),
		},
		Cache: CacheConfig{
			URL:         envStr("LEARN_CACHE_URL", ""),
			SyllabusTTL: envInt("LEARN_CACHE_SYLLABUS_TTL", 300),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey: envStr("LEARN_AI_GOOGLE_API_KEY", ""),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("LEARN_AI_OPENROUTER_API_KEY", ""),
			},
		},
		Auth: AuthConfig{
			JWTSecret: envStr("LEARN_AUTH_JWT_SECRET", ""),
		},
		Progress: ProgressConfig{
			Timezone:      envStr("LEARN_PROGRESS_TIMEZONE", "UTC"),
			MaxTxAttempts: envInt("LEARN_PROGRESS_MAX_TX_ATTEMPTS", 5),
			RetryBackoff:  envInt("LEARN_PROGRESS_RETRY_BACKOFF_MS", 10),
		},
		Syllabus: SyllabusConfig{
			SeedDir: envStr("LEARN_SYLLABUS_SEED_DIR", ""),
		},
		Vault: VaultConfig{
			Secret: envStr("LEARN_VAULT_SECRET", ""),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("LEARN_AUTH_JWT_SECRET is required")
	}

	if len(c.Vault.Secret) < 16 {
		return fmt.Errorf("LEARN_VAULT_SECRET must be at least 16 characters")
	}

	if _, err := time.LoadLocation(c.Progress.Timezone); err != nil {
		return fmt.Errorf("LEARN_PROGRESS_TIMEZONE %q: %w", c.Progress.Timezone, err)
	}

	if c.Progress.MaxTxAttempts < 1 || c.Progress.MaxTxAttempts > 20 {
		return fmt.Errorf("LEARN_PROGRESS_MAX_TX_ATTEMPTS must be between 1 and 20, got %d", c.Progress.MaxTxAttempts)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// HasAIProvider returns true if a platform-level AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.Google.APIKey != "" || c.AI.OpenRouter.APIKey != ""
}

// Location returns the streak reference timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Progress.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps the configured log level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
