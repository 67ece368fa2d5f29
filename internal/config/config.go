// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Store       StoreConfig
	Pagination  PaginationConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

// StoreConfig bounds every lookup issued against the store.
type StoreConfig struct {
	QueryTimeout         time.Duration
	MaxConcurrentLookups int
}

type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "license_registry"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		Store: StoreConfig{
			QueryTimeout:         time.Duration(getEnvAsInt("STORE_QUERY_TIMEOUT_MS", 2000)) * time.Millisecond,
			MaxConcurrentLookups: getEnvAsInt("STORE_MAX_CONCURRENT_LOOKUPS", 8),
		},
		Pagination: PaginationConfig{
			DefaultLimit: getEnvAsInt("PAGINATION_DEFAULT_LIMIT", 20),
			MaxLimit:     getEnvAsInt("PAGINATION_MAX_LIMIT", 500),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Store.QueryTimeout <= 0 {
		return fmt.Errorf("store query timeout must be positive")
	}

	if c.Store.MaxConcurrentLookups < 1 {
		return fmt.Errorf("store max concurrent lookups must be at least 1")
	}

	if c.Pagination.DefaultLimit < 0 || c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		return fmt.Errorf("pagination limits are inconsistent: default=%d max=%d",
			c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
