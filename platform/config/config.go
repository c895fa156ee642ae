// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetScoreRateLimitPerMinute() int
}

// IntentConfig provides settings for the chat-completion backed intent classifier.
type IntentConfig interface {
	GetOpenAIAPIKey() string
	GetOpenAIBaseURL() string
	GetOpenAIModel() string
	GetIntentTimeout() time.Duration
	GetIntentMaxAttempts() int
	GetIntentRetryBaseDelay() time.Duration
}

// ScoringConfig provides settings for the scoring orchestrator and ingestion.
type ScoringConfig interface {
	GetScoringConcurrency() int
	GetRulesFile() string
	GetMaxUploadBytes() int64
}

// SessionConfig provides settings for the session state backend.
type SessionConfig interface {
	GetRedisURL() string
	GetSessionTTL() time.Duration
	IsRedisEnabled() bool
}

// DatabaseConfig provides database connection settings for the run archive.
type DatabaseConfig interface {
	GetDatabaseURL() string
	IsArchiveEnabled() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketExports() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	CORSAllowAll            bool
	CORSOrigins             []string
	ScoreRateLimitPerMinute int
	OpenAIAPIKey            string
	OpenAIBaseURL           string
	OpenAIModel             string
	IntentTimeout           time.Duration
	IntentMaxAttempts       int
	IntentRetryBaseDelay    time.Duration
	ScoringConcurrency      int
	RulesFile               string
	MaxUploadBytes          int64
	RedisURL                string
	SessionTTL              time.Duration
	DatabaseURL             string
	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	MinioBucketExports      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string             { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool           { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string        { return c.CORSOrigins }
func (c *Config) GetScoreRateLimitPerMinute() int { return c.ScoreRateLimitPerMinute }

// IntentConfig implementation
func (c *Config) GetOpenAIAPIKey() string                { return c.OpenAIAPIKey }
func (c *Config) GetOpenAIBaseURL() string               { return c.OpenAIBaseURL }
func (c *Config) GetOpenAIModel() string                 { return c.OpenAIModel }
func (c *Config) GetIntentTimeout() time.Duration        { return c.IntentTimeout }
func (c *Config) GetIntentMaxAttempts() int              { return c.IntentMaxAttempts }
func (c *Config) GetIntentRetryBaseDelay() time.Duration { return c.IntentRetryBaseDelay }

// ScoringConfig implementation
func (c *Config) GetScoringConcurrency() int { return c.ScoringConcurrency }
func (c *Config) GetRulesFile() string       { return c.RulesFile }
func (c *Config) GetMaxUploadBytes() int64   { return c.MaxUploadBytes }

// SessionConfig implementation
func (c *Config) GetRedisURL() string          { return c.RedisURL }
func (c *Config) GetSessionTTL() time.Duration { return c.SessionTTL }
func (c *Config) IsRedisEnabled() bool         { return c.RedisURL != "" }

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }
func (c *Config) IsArchiveEnabled() bool { return c.DatabaseURL != "" }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketExports() string { return c.MinioBucketExports }
func (c *Config) IsMinIOEnabled() bool          { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8000"),
		CORSAllowAll:            containsWildcard(corsOrigins),
		CORSOrigins:             corsOrigins,
		ScoreRateLimitPerMinute: mustInt(getEnv("SCORE_RATE_LIMIT_PER_MINUTE", "0")),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:           getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:             getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		IntentTimeout:           mustDuration(getEnv("INTENT_TIMEOUT", "30s")),
		IntentMaxAttempts:       mustInt(getEnv("INTENT_MAX_ATTEMPTS", "1")),
		IntentRetryBaseDelay:    mustDuration(getEnv("INTENT_RETRY_BASE_DELAY", "500ms")),
		ScoringConcurrency:      mustInt(getEnv("SCORING_CONCURRENCY", "4")),
		RulesFile:               getEnv("RULES_FILE", ""),
		MaxUploadBytes:          mustInt64(getEnv("MAX_UPLOAD_BYTES", "10485760")),
		RedisURL:                getEnv("REDIS_URL", ""),
		SessionTTL:              mustDuration(getEnv("SESSION_TTL", "0s")),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:          getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:          getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:             strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketExports:      getEnv("MINIO_BUCKET_EXPORTS", "lead-score-exports"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IntentMaxAttempts < 1 {
		return fmt.Errorf("INTENT_MAX_ATTEMPTS must be at least 1")
	}
	if c.ScoringConcurrency < 1 {
		return fmt.Errorf("SCORING_CONCURRENCY must be at least 1")
	}
	if c.IntentTimeout <= 0 {
		return fmt.Errorf("INTENT_TIMEOUT must be a positive duration")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.IsMinIOEnabled() && (c.MinIOAccessKey == "" || c.MinIOSecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
