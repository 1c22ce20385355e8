package config

import (
	"fmt"
	"os"
	"time"
)

const (
	DBDriverMemory   = "memory"
	DBDriverPostgres = "postgres"
	DBDriverOracle   = "oracle"
)

type Config struct {
	ServerHost string
	ServerPort string

	DBDriver string
	DBDSN    string

	TopologyURL     string
	TopologyToken   string
	TopologyTimeout time.Duration

	LogLevel string
}

func Load() (*Config, error) {
	topologyURL := os.Getenv("TOPOLOGY_URL")
	if topologyURL == "" {
		return nil, fmt.Errorf("TOPOLOGY_URL environment variable is required")
	}

	driver := getEnvOrDefault("DB_DRIVER", DBDriverMemory)
	switch driver {
	case DBDriverMemory, DBDriverPostgres, DBDriverOracle:
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	dsn := os.Getenv("DB_DSN")
	if driver != DBDriverMemory && dsn == "" {
		return nil, fmt.Errorf("DB_DSN is required for driver %s", driver)
	}

	timeout, err := time.ParseDuration(getEnvOrDefault("TOPOLOGY_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOPOLOGY_TIMEOUT: %w", err)
	}

	return &Config{
		ServerHost:      getEnvOrDefault("SERVER_HOST", "localhost"),
		ServerPort:      getEnvOrDefault("SERVER_PORT", "8080"),
		DBDriver:        driver,
		DBDSN:           dsn,
		TopologyURL:     topologyURL,
		TopologyToken:   os.Getenv("TOPOLOGY_TOKEN"),
		TopologyTimeout: timeout,
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
