// Package config loads runtime configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration. Strings for identifiers and
// secrets, durations for token lifetimes. JWTSecret is the process-wide
// signing key: loaded once here, never logged.
type Config struct {
	Env           string        // application environment (dev/test/prod)
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host
	DBPort        string        // database port
	DBName        string        // database name
	JWTSecret     string        // symmetric signing key for tokens
	AccessTTL     time.Duration // access token lifetime
	RefreshTTL    time.Duration // refresh token lifetime
	BcryptCost    int           // bcrypt cost for password hashing
	SweepInterval time.Duration // ledger garbage-collection interval
	AMQPURL       string        // RabbitMQ URL (empty disables events)
}

// Load reads the configuration. Required variables are enforced by
// must(); missing values end the process with a fatal log message.
// The refresh-TTL-exceeds-access-TTL invariant is re-checked by the
// token codec at construction.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTL:     time.Duration(mustInt("ACCESS_TOKEN_TTL_MIN")) * time.Minute,
		RefreshTTL:    time.Duration(mustInt("REFRESH_TOKEN_TTL_MIN")) * time.Minute,
		BcryptCost:    mustInt("BCRYPT_COST"),
		SweepInterval: time.Duration(envIntDefault("SWEEP_INTERVAL_MIN", 60)) * time.Minute,
		AMQPURL:       os.Getenv("RABBITMQ_URL"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
