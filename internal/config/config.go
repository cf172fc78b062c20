package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendS3       = "s3"
)

// Redemption strategies.
const (
	StrategyOptimistic = "optimistic"
	StrategyLock       = "lock"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Store      StoreConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	S3         S3Config
	Redemption RedemptionConfig
	Commission CommissionConfig
	Notify     NotifyConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// StoreConfig selects and bounds the document store.
type StoreConfig struct {
	Backend    string
	Timeout    time.Duration
	FileDir    string
	SQLitePath string
}

// DatabaseConfig holds PostgreSQL configuration for the postgres backend.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// RedisConfig holds configuration for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// S3Config holds AWS S3 configuration for the s3 backend.
type S3Config struct {
	Bucket string
	Region string
	Prefix string // Path prefix within bucket (e.g., "promo/")
}

// RedemptionConfig tunes concurrency control.
type RedemptionConfig struct {
	Strategy   string
	MaxRetries int
}

// CommissionConfig is the default commission split used when no settings document exists.
type CommissionConfig struct {
	TotalPercent float64
	EarlyPercent float64
}

// NotifyConfig configures notification delivery.
type NotifyConfig struct {
	WebhookURL string
	Workers    int
	Timeout    time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := fromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadStore loads configuration for command line tools that only talk to the
// document store. Server and auth settings are not validated.
func LoadStore() (*Config, error) {
	cfg := fromEnv()

	if err := cfg.validateStore(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Store: StoreConfig{
			Backend:    getEnv("STORE_BACKEND", BackendFile),
			Timeout:    getEnvAsDuration("STORE_TIMEOUT_MS", 2*time.Second),
			FileDir:    getEnv("STORE_FILE_DIR", "data"),
			SQLitePath: getEnv("SQLITE_PATH", "data/promo.db"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "promo"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "promo:"),
		},
		S3: S3Config{
			Bucket: getEnv("S3_BUCKET", ""),
			Region: getEnv("S3_REGION", "us-east-1"),
			Prefix: getEnv("S3_PREFIX", "promo/"),
		},
		Redemption: RedemptionConfig{
			Strategy:   getEnv("REDEMPTION_STRATEGY", StrategyOptimistic),
			MaxRetries: getEnvAsInt("REDEMPTION_MAX_RETRIES", 5),
		},
		Commission: CommissionConfig{
			TotalPercent: getEnvAsFloat("COMMISSION_TOTAL_PERCENT", 20),
			EarlyPercent: getEnvAsFloat("COMMISSION_EARLY_PERCENT", 10),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Workers:    getEnvAsInt("NOTIFY_WORKERS", 4),
			Timeout:    getEnvAsDuration("NOTIFY_TIMEOUT_MS", 10*time.Second),
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if c.Redemption.Strategy != StrategyOptimistic && c.Redemption.Strategy != StrategyLock {
		return fmt.Errorf("invalid redemption strategy: %s (must be optimistic or lock)", c.Redemption.Strategy)
	}

	if c.Redemption.MaxRetries < 0 {
		return fmt.Errorf("redemption max retries must not be negative")
	}

	if c.Notify.Workers < 1 {
		return fmt.Errorf("notify workers must be at least 1")
	}

	return nil
}

func (c *Config) validateStore() error {
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store timeout must be positive")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.FileDir == "" {
			return fmt.Errorf("store file directory is required for the file backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite backend")
		}
	case BackendPostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required for the s3 backend")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required for the s3 backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %s", c.Store.Backend)
	}

	if c.Commission.TotalPercent < 0 || c.Commission.TotalPercent > 100 {
		return fmt.Errorf("commission total percent must be between 0 and 100")
	}

	if c.Commission.EarlyPercent < 0 || c.Commission.EarlyPercent > c.Commission.TotalPercent {
		return fmt.Errorf("commission early percent must be between 0 and the total percent")
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Port)
	}

	if c.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration reads a millisecond count or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
