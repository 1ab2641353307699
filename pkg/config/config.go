// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Extraction ExtractionConfig
	Registry   RegistryConfig
	Payment    PaymentConfig
	Intake     IntakeConfig
	Autosave   AutosaveConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// ExtractionConfig points at the external OCR extraction collaborator.
type ExtractionConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RegistryConfig points at the external company registry collaborator.
type RegistryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PaymentConfig points at the payment collaborator invoked at submission.
type PaymentConfig struct {
	BaseURL   string
	ReturnURL string
	Timeout   time.Duration
}

// IntakeConfig bounds accepted document captures.
type IntakeConfig struct {
	MaxImageBytes     int64
	AcceptedMimeTypes []string
}

// AutosaveConfig tunes the debounced draft persistence.
type AutosaveConfig struct {
	Debounce time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-this-secret"),
			Expiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),
		},
		Extraction: ExtractionConfig{
			BaseURL: getEnv("EXTRACTION_BASE_URL", "http://localhost:9100"),
			APIKey:  getEnv("EXTRACTION_API_KEY", ""),
			Timeout: getDurationEnv("EXTRACTION_TIMEOUT", 30*time.Second),
		},
		Registry: RegistryConfig{
			BaseURL: getEnv("REGISTRY_BASE_URL", "http://localhost:9200"),
			Timeout: getDurationEnv("REGISTRY_TIMEOUT", 10*time.Second),
		},
		Payment: PaymentConfig{
			BaseURL:   getEnv("PAYMENT_BASE_URL", "http://localhost:9300"),
			ReturnURL: getEnv("PAYMENT_RETURN_URL", "http://localhost:8080/orders/confirm"),
			Timeout:   getDurationEnv("PAYMENT_TIMEOUT", 15*time.Second),
		},
		Intake: IntakeConfig{
			MaxImageBytes:     getInt64Env("INTAKE_MAX_IMAGE_BYTES", 10*1024*1024),
			AcceptedMimeTypes: getSliceEnv("INTAKE_ACCEPTED_MIME_TYPES", []string{"image/jpeg", "image/png", "image/webp"}),
		},
		Autosave: AutosaveConfig{
			Debounce: getDurationEnv("AUTOSAVE_DEBOUNCE", 2*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
