package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is not set")
	ErrMissingDatabaseURL = errors.New("DB_URL is required for non-sqlite databases")
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabaseURL    string
	DatabasePath   string
	MigrationsPath string

	JWTSecret     string
	TokenDuration time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string

	SESRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	SyncRetryMax  int
	SyncRetryBase time.Duration
	SyncSweepSecs int
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:    getEnv("DB_URL", ""),
		DatabasePath:   getEnv("DB_PATH", "./questacademy.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenDuration: 24 * time.Hour,

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectBase:  getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080"),

		SESRegion:    getEnv("SES_REGION", "eu-west-1"),
		SESFromEmail: os.Getenv("SES_FROM_EMAIL"),
		SESFromName:  getEnv("SES_FROM_NAME", "QuestAcademy"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),

		SyncRetryMax:  getEnvInt("SYNC_RETRY_MAX", 5),
		SyncRetryBase: 500 * time.Millisecond,
		SyncSweepSecs: getEnvInt("SYNC_SWEEP_SECONDS", 30),
	}
}

// Validate checks configuration whose absence indicates a deployment defect.
// These are fatal at startup, not runtime conditions.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.DatabaseType {
	case "sqlite", "sqlite3", "":
		// DatabasePath always has a default
	default:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}
