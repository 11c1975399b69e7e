// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data backends
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend   string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LedgerKey     string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth (optional)
	JWTSecret           string
	GroupPassphraseHash string
	TokenTTL            time.Duration

	// Projection cache
	ProjectionCacheSize int
	ProjectionCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// envProblems holds malformed values FromEnv replaced with defaults.
	envProblems []string
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment take precedence over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() *Config {
	env := &envReader{}
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:   getEnv("DATA_BACKEND", BackendSQLite),
		DBPath:        getEnv("DB_PATH", "./data/equisplit.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       env.int("REDIS_DB", 0),
		LedgerKey:     getEnv("LEDGER_KEY", "equisplit_expenses"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "equisplit"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "settlement_updates"),

		JWTSecret:           getEnv("JWT_SECRET", ""),
		GroupPassphraseHash: getEnv("GROUP_PASSPHRASE_HASH", ""),
		TokenTTL:            env.duration("TOKEN_TTL", 24*time.Hour),

		ProjectionCacheSize: env.int("PROJECTION_CACHE_SIZE", 16),
		ProjectionCacheTTL:  env.duration("PROJECTION_CACHE_TTL", 10*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
	cfg.envProblems = env.problems
	return cfg
}

// AuthEnabled reports whether RPCs require a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.envProblems...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.DBPath == "" {
			problems = append(problems, "DB_PATH cannot be empty when using sqlite backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR cannot be empty when using redis backend")
		}
		if c.LedgerKey == "" {
			problems = append(problems, "LEDGER_KEY cannot be empty when using redis backend")
		}
		if c.RedisDB < 0 {
			problems = append(problems, fmt.Sprintf("invalid redis db %d: must not be negative", c.RedisDB))
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v",
			c.DataBackend, []string{BackendSQLite, BackendRedis, BackendMemory}))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			problems = append(problems, "AMQP exchange and queue names are required when AMQP_URL is set")
		}
	}

	if c.AuthEnabled() {
		if len(c.JWTSecret) < 32 {
			problems = append(problems, "JWT_SECRET must be at least 32 characters")
		}
		if c.GroupPassphraseHash == "" {
			problems = append(problems, "GROUP_PASSPHRASE_HASH is required when JWT_SECRET is set")
		}
		if c.TokenTTL <= 0 {
			problems = append(problems, fmt.Sprintf("invalid token TTL %v: must be positive", c.TokenTTL))
		}
	}

	if c.ProjectionCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid projection cache size %d: must be at least 1", c.ProjectionCacheSize))
	}
	if c.ProjectionCacheTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid projection cache TTL %v: must be positive", c.ProjectionCacheTTL))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and records values it could not parse.
type envReader struct {
	problems []string
}

func (r *envReader) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("invalid %s '%s': must be an integer", key, value))
		return defaultValue
	}
	return i
}

func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("invalid %s '%s': must be a duration such as 10m", key, value))
		return defaultValue
	}
	return d
}
