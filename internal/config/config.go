// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env           string // APP_ENV (dev, test, prod)
	Port          string // APP_PORT
	StorageDriver string // STORAGE_DRIVER, mysql or memory
	SeedDemo      bool   // SEED_DEMO, populate the memory store on startup

	DBUser string
	DBPass string // empty allowed
	DBHost string
	DBPort string
	DBName string

	JWTSecret    string
	AccessTTLMin int // lifetime of tokens minted by the token command

	AMQPURL       string // AMQP_URL, empty disables event publishing
	AuditConsumer bool   // AUDIT_CONSUMER_ENABLED
	AuditLogDir   string // AUDIT_LOG_DIR

	LogFormat string // LOG_FORMAT, json or text
	LogLevel  string // LOG_LEVEL
}

// Load reads configuration values from environment variables. Missing
// required variables are reported together in one error.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "8080"),
		StorageDriver: strings.ToLower(envStr("STORAGE_DRIVER", DriverMySQL)),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 60),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AuditConsumer: envBool("AUDIT_CONSUMER_ENABLED", false),
		AuditLogDir:   envStr("AUDIT_LOG_DIR", "logs"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
	}
	cfg.SeedDemo = envBool("SEED_DEMO", cfg.StorageDriver == DriverMemory)
	cfg.LogFormat = envStr("LOG_FORMAT", "json")
	if cfg.Env == "dev" {
		cfg.LogFormat = envStr("LOG_FORMAT", "text")
	}

	switch cfg.StorageDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if len(missing) > 0 {
		return Config{}, errors.New("missing required env vars: " + strings.Join(missing, ", "))
	}
	if cfg.AccessTTLMin < 1 {
		return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_TTL_MIN: %d", cfg.AccessTTLMin)
	}
	return cfg, nil
}

// DSN returns the MySQL data source name.
func (c Config) DSN() string {
	auth := c.DBUser
	if c.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", c.DBUser, c.DBPass)
	}
	// parseTime=true -> DATE/DATETIME -> time.Time | loc=UTC keeps times consistent
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.DBHost, c.DBPort, c.DBName)
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}
