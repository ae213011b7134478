package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application configuration
type Config struct {
	Port           string
	DBDriver       string
	DBConn         string
	DBMaxOpenConns int
	LogLevel       string

	LockBackend string
	LockKey     string
	LockTimeout time.Duration
	LockTTL     time.Duration
	RedisURL    string

	DissolveWindow time.Duration
	BcryptCost     int
	AuditSchedule  string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	NotifyEmail  string
}

// NewConfig loads configuration from environment variables, reading a .env
// file first when one is present
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=bank sslmode=disable"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LockBackend:   getEnv("LOCK_BACKEND", "postgres"),
		LockKey:       getEnv("LOCK_KEY", "bank-ledger-write"),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AuditSchedule: getEnv("AUDIT_SCHEDULE", "@every 1m"),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", ""),
		NotifyEmail:   getEnv("NOTIFY_EMAIL", ""),
	}

	var err error
	if cfg.DBMaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getEnvInt("BCRYPT_COST", 6); err != nil {
		return nil, err
	}
	if cfg.LockTimeout, err = getEnvDuration("LOCK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = getEnvDuration("LOCK_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DissolveWindow, err = getEnvDuration("DISSOLVE_WINDOW", 300*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.LockBackend {
	case "local":
	case "postgres":
		if c.DBDriver != "postgres" {
			return fmt.Errorf("LOCK_BACKEND postgres requires DB_DRIVER postgres")
		}
		// The advisory lock pins one connection while the write transaction needs another.
		if c.DBMaxOpenConns > 0 && c.DBMaxOpenConns < 2 {
			return fmt.Errorf("LOCK_BACKEND postgres needs DB_MAX_OPEN_CONNS of at least 2, got %d", c.DBMaxOpenConns)
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required")
		}
	default:
		return fmt.Errorf("unsupported LOCK_BACKEND %q", c.LockBackend)
	}

	if c.LockKey == "" {
		return fmt.Errorf("LOCK_KEY is required")
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	if c.DissolveWindow <= 0 {
		return fmt.Errorf("DISSOLVE_WINDOW must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// NotificationsEnabled reports whether an SMTP transport and recipient are configured
func (c *Config) NotificationsEnabled() bool {
	return c.SMTPHost != "" && c.NotifyEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
