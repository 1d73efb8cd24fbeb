package config

import (
	"os"
	"strconv"
	"time"

	"tessera/internal/cache"
	"tessera/internal/database"
	"tessera/internal/messaging"
)

// Config holds the application configuration.
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database database.Config
	NATS     messaging.Config
	Redis    cache.Config
	Jobs     JobsConfig
}

// JobsConfig holds the background job schedules.
type JobsConfig struct {
	ReconcilerInterval time.Duration
	ReminderInterval   time.Duration
	ReminderLeadTime   time.Duration
}

// Load reads the configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "tessera"),
			Password:           getEnv("DB_PASSWORD", "tessera123"),
			DBName:             getEnv("DB_NAME", "tessera"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "tessera"),
			ClientID:  getEnv("NATS_CLIENT_ID", "tessera-api"),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			TTL:      time.Duration(getEnvInt("REDIS_AVAILABILITY_TTL_SEC", 30)) * time.Second,
		},

		Jobs: JobsConfig{
			ReconcilerInterval: time.Duration(getEnvInt("RECONCILER_INTERVAL_SEC", 120)) * time.Second,
			ReminderInterval:   time.Duration(getEnvInt("REMINDER_INTERVAL_SEC", 3600)) * time.Second,
			ReminderLeadTime:   time.Duration(getEnvInt("REMINDER_LEAD_HOURS", 24)) * time.Hour,
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
