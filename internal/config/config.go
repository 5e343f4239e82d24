package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the catalog sync service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database (optional, enables the sync attempt audit trail)
	DatabaseURL string

	// Catalog
	DataDir         string
	PreferredLocale string
	FallbackLocale  string
	DefaultVendor   string

	// Aggregate cache
	CacheTTL           time.Duration
	CacheSweepInterval time.Duration

	// Commerce platform
	ShopifyStore       string
	ShopifyAccessToken string
	StockLocationName  string

	// Messaging
	NATSURL      string
	EventsEnable bool
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		Port:        getEnv("PORT", "8099"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		DataDir:         getEnv("CATALOG_DATA_DIR", "./data"),
		PreferredLocale: getEnv("PREFERRED_LOCALE", "en_US"),
		FallbackLocale:  getEnv("FALLBACK_LOCALE", "de_DE"),
		DefaultVendor:   getEnv("DEFAULT_VENDOR", ""),

		CacheTTL:           getEnvAsDuration("CACHE_TTL", 30*time.Minute),
		CacheSweepInterval: getEnvAsDuration("CACHE_SWEEP_INTERVAL", time.Minute),

		ShopifyStore:       getEnv("SHOPIFY_STORE", ""),
		ShopifyAccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		StockLocationName:  getEnv("STOCK_LOCATION_NAME", ""),

		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		EventsEnable: getEnvAsBool("EVENTS_ENABLED", true),
	}

	if config.ShopifyStore == "" || config.ShopifyAccessToken == "" {
		log.Fatal("SHOPIFY_STORE and SHOPIFY_ACCESS_TOKEN are required")
	}

	if config.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, sync attempt auditing is disabled")
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

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: invalid value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: invalid value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}
