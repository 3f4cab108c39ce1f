// ABOUTME: This file handles configuration management for period-selector-sidecar
// ABOUTME: Loads environment variables and validates home platform connection settings

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the period-selector-sidecar service
type Config struct {
	// Service configuration
	ServiceName string
	LogLevel    string

	// HTTP server configuration
	Server ServerConfig

	// Home platform API configuration
	HomePlatform HomePlatformConfig

	// Selector defaults
	Selector SelectorConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// HomePlatformConfig holds home platform API settings
type HomePlatformConfig struct {
	BaseURL        string
	AccessToken    string
	RequestTimeout time.Duration
	RatePerSecond  float64
	RateBurst      int
}

// SelectorConfig holds the selector's startup defaults
type SelectorConfig struct {
	Locale        string
	CollectionKey string
	SyncEntity    string
	SyncDirection string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnvOrDefault("SERVICE_NAME", "period-selector-sidecar"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),

		Server: ServerConfig{
			Port:            getEnvInt("HTTP_PORT", 8080),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},

		HomePlatform: HomePlatformConfig{
			BaseURL:        getEnvOrDefault("HOME_API_BASE_URL", "http://homeassistant.local:8123"),
			AccessToken:    os.Getenv("HOME_API_TOKEN"), // Required from secret
			RequestTimeout: getEnvDuration("HOME_API_TIMEOUT", 30*time.Second),
			RatePerSecond:  getEnvFloat("HOME_API_RATE_PER_SECOND", 10),
			RateBurst:      getEnvInt("HOME_API_RATE_BURST", 20),
		},

		Selector: SelectorConfig{
			Locale:        getEnvOrDefault("SELECTOR_LOCALE", "en-US"),
			CollectionKey: getEnvOrDefault("COLLECTION_KEY", "energy"),
			SyncEntity:    os.Getenv("SYNC_ENTITY"),
			SyncDirection: getEnvOrDefault("SYNC_DIRECTION", "both"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HomePlatform.BaseURL == "" {
		return fmt.Errorf("HOME_API_BASE_URL is required")
	}

	if c.HomePlatform.AccessToken == "" {
		return fmt.Errorf("HOME_API_TOKEN is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT %d is out of range", c.Server.Port)
	}

	switch c.Selector.SyncDirection {
	case "both", "to-entity", "from-entity":
	default:
		return fmt.Errorf("SYNC_DIRECTION must be one of both, to-entity, from-entity")
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
