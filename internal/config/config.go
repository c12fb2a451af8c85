package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database configuration
	DatabaseURL string

	// Identity configuration
	JWTSecret string

	// Anomaly detection configuration
	DetectionSchedule string

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// LoadConfig loads the application configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env file. Using environment variables.")
	}

	// Create and populate config
	config := &Config{
		// Server configuration
		Port:         getEnvInt("PORT", 8080),
		ReadTimeout:  time.Duration(getEnvInt("READ_TIMEOUT", 15)) * time.Second,
		WriteTimeout: time.Duration(getEnvInt("WRITE_TIMEOUT", 30)) * time.Second,

		// Database configuration
		DatabaseURL: os.Getenv("POSTGRES_DB_URL"),

		// Identity configuration
		JWTSecret: os.Getenv("JWT_SECRET"),

		// Anomaly detection runs daily at 02:00 unless overridden
		DetectionSchedule: getEnvString("DETECTION_SCHEDULE", "0 2 * * *"),

		// Logging configuration
		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "json"),
	}

	// Validate critical configuration
	validateConfig(config)

	return config, nil
}

// validateConfig checks if critical configuration values are set and logs warnings if they're missing
func validateConfig(config *Config) {
	if config.DatabaseURL == "" {
		log.Println("Warning: No POSTGRES_DB_URL provided. Database connections will fail.")
	}

	if config.JWTSecret == "" {
		log.Println("Warning: No JWT_SECRET provided. Authenticated requests will fail.")
	}
}

// getEnvInt gets an integer from an environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvString gets a string from an environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
