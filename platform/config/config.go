// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"errors"
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

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOPublicBaseURL() string
	GetMinioBucketAcquisitionDocuments() string
	GetMinioBucketContractPDFs() string
	IsMinIOEnabled() bool
}

// OCRConfig provides settings for the document extraction agent.
type OCRConfig interface {
	GetOCRAPIKey() string
	GetOCRBaseURL() string
	GetOCRModel() string
	GetOCRMinConfidence() float64
	IsOCREnabled() bool
}

// SessionConfig provides settings for capture session bookkeeping.
type SessionConfig interface {
	GetRedisURL() string
	GetSessionTTL() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                             string
	HTTPAddr                        string
	DatabaseURL                     string
	MigrationsEnabled               bool
	JWTAccessSecret                 string
	CORSAllowAll                    bool
	CORSOrigins                     []string
	CORSAllowCreds                  bool
	MinIOEndpoint                   string
	MinIOAccessKey                  string
	MinIOSecretKey                  string
	MinIOUseSSL                     bool
	MinIOMaxFileSize                int64
	MinIOPublicBaseURL              string
	MinioBucketAcquisitionDocuments string
	MinioBucketContractPDFs         string
	OCRAPIKey                       string
	OCRBaseURL                      string
	OCRModel                        string
	OCRMinConfidence                float64
	RedisURL                        string
	SessionTTL                      time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64    { return c.MinIOMaxFileSize }
func (c *Config) GetMinIOPublicBaseURL() string { return c.MinIOPublicBaseURL }
func (c *Config) GetMinioBucketAcquisitionDocuments() string {
	return c.MinioBucketAcquisitionDocuments
}
func (c *Config) GetMinioBucketContractPDFs() string { return c.MinioBucketContractPDFs }
func (c *Config) IsMinIOEnabled() bool               { return c.MinIOEndpoint != "" }

// OCRConfig implementation
func (c *Config) GetOCRAPIKey() string          { return c.OCRAPIKey }
func (c *Config) GetOCRBaseURL() string         { return c.OCRBaseURL }
func (c *Config) GetOCRModel() string           { return c.OCRModel }
func (c *Config) GetOCRMinConfidence() float64 { return c.OCRMinConfidence }
func (c *Config) IsOCREnabled() bool            { return c.OCRAPIKey != "" }

// SessionConfig implementation
func (c *Config) GetRedisURL() string          { return c.RedisURL }
func (c *Config) GetSessionTTL() time.Duration { return c.SessionTTL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	maxFileSize, err := strconv.ParseInt(getEnv("MINIO_MAX_FILE_SIZE", "52428800"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MINIO_MAX_FILE_SIZE: %w", err)
	}

	minConfidence, err := strconv.ParseFloat(getEnv("OCR_MIN_CONFIDENCE", "0.5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OCR_MIN_CONFIDENCE: %w", err)
	}

	cfg := &Config{
		Env:                             getEnv("APP_ENV", "development"),
		HTTPAddr:                        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                     getEnv("DATABASE_URL", ""),
		MigrationsEnabled:               !strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "false"),
		JWTAccessSecret:                 getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                    corsAllowAll,
		CORSOrigins:                     corsOrigins,
		CORSAllowCreds:                  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		MinIOEndpoint:                   getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:                  getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:                  getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                     strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:                maxFileSize,
		MinIOPublicBaseURL:              strings.TrimRight(getEnv("MINIO_PUBLIC_BASE_URL", ""), "/"),
		MinioBucketAcquisitionDocuments: getEnv("MINIO_BUCKET_ACQUISITION_DOCUMENTS", "acquisition-documents"),
		MinioBucketContractPDFs:         getEnv("MINIO_BUCKET_CONTRACT_PDFS", "contract-pdfs"),
		OCRAPIKey:                       getEnv("OCR_API_KEY", getEnv("MOONSHOT_API_KEY", "")),
		OCRBaseURL:                      getEnv("OCR_BASE_URL", ""),
		OCRModel:                        getEnv("OCR_MODEL", "kimi-k2.5"),
		OCRMinConfidence:                minConfidence,
		RedisURL:                        getEnv("REDIS_URL", ""),
		SessionTTL:                      sessionTTL,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTAccessSecret == "" {
		missing = append(missing, "JWT_ACCESS_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.OCRMinConfidence < 0 || c.OCRMinConfidence > 1 {
		return errors.New("OCR_MIN_CONFIDENCE must be between 0 and 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
