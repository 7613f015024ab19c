package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Auth0
	Auth0Domain   string
	Auth0Audience string
	Auth0ClientID string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Storage (attachment backend)
	Storage StorageConfig

	// Balance cache
	BalanceCacheTTL time.Duration

	// Recurring engine
	RecurringSweepInterval time.Duration

	// Rate limiting
	RateLimit RateLimitConfig

	// Admin
	AdminAPIKey string
}

// StorageConfig holds the attachment object-store configuration. The
// backend selector lets deployments swap S3-compatible providers without
// a code change.
type StorageConfig struct {
	Backend         string // "s3" or "minio"
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// RateLimitConfig holds the per-surface rate-limit tunables (auth, social,
// general).
type RateLimitConfig struct {
	AuthRequestsPerMinute    int
	SocialRequestsPerMinute  int
	GeneralRequestsPerMinute int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),
		Auth0ClientID: getEnv("AUTH0_CLIENT_ID", ""),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:           getEnv("ENV", "development"),
		Storage: StorageConfig{
			Backend:         getEnv("STORAGE_BACKEND", "s3"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", ""),
			BucketName:      getEnv("STORAGE_BUCKET", "divvy-attachments"),
			UseSSL:          getEnv("STORAGE_USE_SSL", "false") == "true",
		},
		BalanceCacheTTL:        getEnvDuration("BALANCE_CACHE_TTL", 5*time.Minute),
		RecurringSweepInterval: getEnvDuration("RECURRING_SWEEP_INTERVAL", time.Hour),
		RateLimit: RateLimitConfig{
			AuthRequestsPerMinute:    getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", 10),
			SocialRequestsPerMinute:  getEnvInt("RATE_LIMIT_SOCIAL_PER_MINUTE", 30),
			GeneralRequestsPerMinute: getEnvInt("RATE_LIMIT_GENERAL_PER_MINUTE", 120),
		},
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	if c.Env == "production" && c.AdminAPIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
