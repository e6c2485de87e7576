// Package config loads process configuration from the environment, with
// optional .env support for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Addr            string        // listen address, default :8080
	DatabaseURL     string        // Postgres DSN; selects the postgres backend when set
	MySQLDSN        string        // MySQL DSN; selects the mysql backend when set
	LogLevel        string        // DEBUG, INFO, WARN, ERROR
	LogFormat       string        // json or text, default json
	MaxOpenConns    int           // SQL pool: max open connections
	MaxIdleConns    int           // SQL pool: max idle connections
	ConnMaxLifetime time.Duration // SQL pool: connection max lifetime
}

// Load reads configuration from environment variables, loading a .env file
// first if one is present.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Addr:            getenv("ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MySQLDSN:        os.Getenv("MYSQL_DSN"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		LogFormat:       os.Getenv("LOG_FORMAT"),
		MaxOpenConns:    getenvInt("DB_MAX_OPEN_CONNS", 16),
		MaxIdleConns:    getenvInt("DB_MAX_IDLE_CONNS", 8),
		ConnMaxLifetime: getenvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
