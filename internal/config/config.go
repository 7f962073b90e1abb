package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Auth     AuthConfig
	Relay    RelayConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// AuthConfig holds operator authentication settings. Secret is also the key
// material for encrypting bot tokens at rest.
type AuthConfig struct {
	Secret       string //nolint:gosec // G117: signing/encryption secret config
	PasswordHash string //nolint:gosec // G117: argon2id operator password hash
	TokenTTL     time.Duration
}

// RelayConfig holds connection manager settings.
type RelayConfig struct {
	DedupSize    int
	LogRetention int
	AutoStart    bool // start all configured bots on boot
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (auth secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("BOTRELAY_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("BOTRELAY_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("BOTRELAY_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tokenTTL, err := getEnvDuration("BOTRELAY_AUTH_TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("BOTRELAY_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("BOTRELAY_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dedupSize, err := getEnvInt("BOTRELAY_RELAY_DEDUP_SIZE", 512)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	logRetention, err := getEnvInt("BOTRELAY_RELAY_LOG_RETENTION", 1000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	autoStart, err := getEnvBool("BOTRELAY_RELAY_AUTO_START", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("BOTRELAY_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("BOTRELAY_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("BOTRELAY_DB_USER", "botrelay"),
			Password: getEnv("BOTRELAY_DB_PASSWORD", ""),
			DBName:   getEnv("BOTRELAY_DB_NAME", "botrelay_dev"),
			SSLMode:  getEnv("BOTRELAY_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("BOTRELAY_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("BOTRELAY_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Server: ServerConfig{
			Addr:         getEnv("BOTRELAY_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Auth: AuthConfig{
			Secret:       getEnv("BOTRELAY_AUTH_SECRET", ""),
			PasswordHash: getEnv("BOTRELAY_AUTH_PASSWORD_HASH", ""),
			TokenTTL:     tokenTTL,
		},
		Relay: RelayConfig{
			DedupSize:    dedupSize,
			LogRetention: logRetention,
			AutoStart:    autoStart,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// Auth secret is required (no insecure default); it keys both session
	// tokens and bot-token encryption.
	if c.Auth.Secret == "" {
		return errors.New("BOTRELAY_AUTH_SECRET is required")
	}
	if len(c.Auth.Secret) < 32 {
		return errors.New("BOTRELAY_AUTH_SECRET must be at least 32 characters")
	}
	if c.Auth.PasswordHash == "" {
		return errors.New("BOTRELAY_AUTH_PASSWORD_HASH is required")
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("BOTRELAY_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("BOTRELAY_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("BOTRELAY_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("BOTRELAY_AUTH_TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("BOTRELAY_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("BOTRELAY_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Relay.DedupSize < 1 {
		return fmt.Errorf("BOTRELAY_RELAY_DEDUP_SIZE must be >= 1, got %d", c.Relay.DedupSize)
	}
	if c.Relay.LogRetention < 1 {
		return fmt.Errorf("BOTRELAY_RELAY_LOG_RETENTION must be >= 1, got %d", c.Relay.LogRetention)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
