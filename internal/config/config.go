package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the wholesale catalog service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Shopify
	ShopifyShopDomain      string
	ShopifyAccessToken     string
	ShopifyAPIVersion      string
	ShopifyTokenSecretName string // GCP Secret Manager secret holding the token

	// GCP
	GCPProjectID string

	// Sync Settings
	PollInterval       time.Duration
	PollMaxWait        time.Duration
	HeartbeatInterval  time.Duration
	HeartbeatThreshold time.Duration
	SyncTimeout        time.Duration
	IngestBatchSize    int
	MaxRetries         int

	// CORS
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "")
		dbName := getEnv("DB_NAME", "wholesale_catalog")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	origins := []string{"http://localhost:3000", "http://localhost:3001"}
	if raw := getEnv("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		origins = strings.Split(raw, ",")
	}

	config := &Config{
		Port:        getEnv("PORT", "8099"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		ShopifyShopDomain:      getEnv("SHOPIFY_SHOP_DOMAIN", ""),
		ShopifyAccessToken:     getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		ShopifyAPIVersion:      getEnv("SHOPIFY_API_VERSION", "2024-07"),
		ShopifyTokenSecretName: getEnv("SHOPIFY_TOKEN_SECRET_NAME", ""),

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),

		PollInterval:       getEnvAsDuration("BULK_POLL_INTERVAL", 10*time.Second),
		PollMaxWait:        getEnvAsDuration("BULK_POLL_MAX_WAIT", 10*time.Minute),
		HeartbeatInterval:  getEnvAsDuration("SYNC_HEARTBEAT_INTERVAL", 30*time.Second),
		HeartbeatThreshold: getEnvAsDuration("SYNC_HEARTBEAT_THRESHOLD", 5*time.Minute),
		SyncTimeout:        getEnvAsDuration("SYNC_TIMEOUT", 30*time.Minute),
		IngestBatchSize:    getEnvAsInt("INGEST_BATCH_SIZE", 250),
		MaxRetries:         getEnvAsInt("SYNC_MAX_RETRIES", 5),

		AllowedOrigins: origins,
	}

	// Validate required fields
	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if config.ShopifyShopDomain == "" {
		log.Fatal("SHOPIFY_SHOP_DOMAIN is required")
	}
	if config.ShopifyAccessToken == "" && config.ShopifyTokenSecretName == "" {
		log.Fatal("SHOPIFY_ACCESS_TOKEN or SHOPIFY_TOKEN_SECRET_NAME is required")
	}
	if config.ShopifyTokenSecretName != "" && config.GCPProjectID == "" {
		log.Fatal("GCP_PROJECT_ID is required when SHOPIFY_TOKEN_SECRET_NAME is set")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
