package config

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	LogLevel    string

	// Uploads root for downloaded/captured thumbnails
	UploadsDir string

	// Bearer key guarding admin routes; empty disables the check
	AdminAPIKey string

	// Primary AI provider (OpenAI-compatible chat completions endpoint)
	AIPrimaryBaseURL string
	AIPrimaryAPIKey  string
	AIPrimaryModel   string
	AIFallbackModel  string

	// Optional secondary vendor, same wire shape
	AISecondaryBaseURL string
	AISecondaryAPIKey  string
	AISecondaryModel   string

	// DisableBrowser skips headless-browser strategies entirely (CI, minimal
	// deployments); scraping degrades to plain HTTP metadata fetches
	DisableBrowser bool
}

func Load() *Config {
	// Local development convenience; a missing .env is not an error
	_ = godotenv.Load()

	config := &Config{
		Port:       getEnvWithDefault("PORT", "8080"),
		LogLevel:   getEnvWithDefault("LOG_LEVEL", "info"),
		UploadsDir: getEnvWithDefault("UPLOADS_DIR", "./uploads"),

		AIPrimaryBaseURL: getEnvWithDefault("AI_PRIMARY_BASE_URL", "https://api.openai.com/v1"),
		AIPrimaryModel:   getEnvWithDefault("AI_PRIMARY_MODEL", "gpt-4o"),
		AIFallbackModel:  getEnvWithDefault("AI_FALLBACK_MODEL", "gpt-4o-mini"),

		AISecondaryBaseURL: getEnvWithDefault("AI_SECONDARY_BASE_URL", ""),
		AISecondaryModel:   getEnvWithDefault("AI_SECONDARY_MODEL", ""),
	}

	// Required environment variables (for database/redis services)
	config.DatabaseURL = mustGetEnv("DATABASE_URL")
	config.RedisURL = mustGetEnv("REDIS_URL")

	// Optional AI keys: extraction still runs without them, every request
	// just degrades to the synthetic fallback
	config.AIPrimaryAPIKey = getEnvWithDefault("AI_PRIMARY_API_KEY", "")
	config.AISecondaryAPIKey = getEnvWithDefault("AI_SECONDARY_API_KEY", "")

	config.AdminAPIKey = getEnvWithDefault("ADMIN_API_KEY", "")

	config.DisableBrowser = os.Getenv("DISABLE_BROWSER") == "true"

	// Command line flags override environment
	flag.StringVar(&config.Port, "port", config.Port, "Server port")
	flag.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	flag.StringVar(&config.UploadsDir, "uploads-dir", config.UploadsDir, "Uploads directory")
	flag.Parse()

	return config
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Environment variable %s is required", key)
	}
	return value
}

// ValidateForAPI ensures all required fields for the API service are present
func (c *Config) ValidateForAPI() error {
	// API only needs database, Redis and uploads dir, all checked in Load
	return nil
}

// ValidateForWorker ensures all required fields for the worker service are present
func (c *Config) ValidateForWorker() error {
	if c.AIPrimaryAPIKey == "" && c.AISecondaryAPIKey == "" {
		log.Printf("Warning: no AI provider keys configured - all extractions will produce synthetic recipes")
	}
	return nil
}

// HasSecondaryProvider reports whether a secondary AI vendor is configured
func (c *Config) HasSecondaryProvider() bool {
	return c.AISecondaryBaseURL != "" && c.AISecondaryAPIKey != "" && c.AISecondaryModel != ""
}
