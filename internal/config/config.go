package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Security SecurityConfig
	Admin    AdminConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Address       string
	Environment   string
	AllowedOrigin string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN          string
	MaxConns     int32
	MinConns     int32
	QueryTimeout time.Duration
	Automigrate  bool
}

// SessionConfig holds session registry configuration. A zero TTL keeps
// sessions until logout or restart.
type SessionConfig struct {
	TTL time.Duration
}

// SecurityConfig holds the scrypt cost parameters
type SecurityConfig struct {
	ScryptN int
	ScryptR int
	ScryptP int
}

// AdminConfig describes the bootstrap administrator. An empty password
// disables seeding.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address:       getEnv("SERVER_ADDRESS", "0.0.0.0:8080"),
			Environment:   getEnv("ENVIRONMENT", "development"),
			AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			DSN:          os.Getenv("DATABASE_DSN"),
			MaxConns:     int32(getEnvAsInt("DATABASE_MAX_CONNS", 25)),
			MinConns:     int32(getEnvAsInt("DATABASE_MIN_CONNS", 5)),
			QueryTimeout: getEnvAsDuration("DATABASE_QUERY_TIMEOUT", 5*time.Second),
			Automigrate:  getEnvAsBool("DATABASE_AUTOMIGRATE", true),
		},
		Session: SessionConfig{
			TTL: getEnvAsDuration("SESSION_TTL", 0),
		},
		Security: SecurityConfig{
			ScryptN: getEnvAsInt("SCRYPT_N", 16384),
			ScryptR: getEnvAsInt("SCRYPT_R", 8),
			ScryptP: getEnvAsInt("SCRYPT_P", 1),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Email:    getEnv("ADMIN_EMAIL", "admin@localhost"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}

	if c.Database.MaxConns <= 0 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("invalid connection pool bounds: min %d, max %d", c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("DATABASE_QUERY_TIMEOUT must be positive")
	}

	if c.Session.TTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}

	// scrypt requires N to be a power of two greater than one
	if c.Security.ScryptN <= 1 || c.Security.ScryptN&(c.Security.ScryptN-1) != 0 {
		return fmt.Errorf("SCRYPT_N must be a power of two greater than 1")
	}

	if c.Security.ScryptR <= 0 || c.Security.ScryptP <= 0 {
		return fmt.Errorf("SCRYPT_R and SCRYPT_P must be positive")
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings such as "5s" or "24h"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
