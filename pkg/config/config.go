package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gatehouse-io/gatehouse/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Files         FilesConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string
	ReplicaURLs  string // comma-separated read replica URLs
	MaxOpenConns int
	MaxIdleConns int
	ConnTimeout  time.Duration
	MigrateOnUp  bool
}

// RedisConfig holds the optional redis connection for the settings cache
// and health checks. Empty URL disables redis.
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
}

// AuthConfig holds JWT and password settings
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
}

// FilesConfig holds local upload storage settings
type FilesConfig struct {
	Root          string
	MaxUploadSize int64
}

// AuditConfig holds audit log retention settings
type AuditConfig struct {
	RetentionDays int
	PurgeSchedule string // cron spec
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Files:         loadFilesConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("GATEHOUSE_HOST", "0.0.0.0"),
		Port:            getEnv("GATEHOUSE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("GATEHOUSE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("GATEHOUSE_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("GATEHOUSE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("GATEHOUSE_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("GATEHOUSE_MAX_BODY_BYTES", 10<<20),
		HealthPort:      getEnv("GATEHOUSE_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          getEnv("GATEHOUSE_POSTGRES_URL", ""),
		ReplicaURLs:  getEnv("GATEHOUSE_POSTGRES_REPLICA_URLS", ""),
		MaxOpenConns: getEnvInt("GATEHOUSE_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns: getEnvInt("GATEHOUSE_POSTGRES_IDLE_CONNS", 5),
		ConnTimeout:  getEnvDuration("GATEHOUSE_POSTGRES_TIMEOUT", 10*time.Second),
		MigrateOnUp:  getEnvBool("GATEHOUSE_MIGRATE_ON_STARTUP", true),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("GATEHOUSE_REDIS_URL", ""),
		Password:   getEnv("GATEHOUSE_REDIS_PASSWORD", ""),
		DB:         getEnvInt("GATEHOUSE_REDIS_DB", 0),
		PoolSize:   getEnvInt("GATEHOUSE_REDIS_POOL_SIZE", 10),
		MaxRetries: getEnvInt("GATEHOUSE_REDIS_MAX_RETRIES", 3),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:       getEnv("GATEHOUSE_JWT_SECRET", ""),
		AccessTokenTTL:  getEnvDuration("GATEHOUSE_ACCESS_TOKEN_TTL", 8*time.Hour),
		RefreshTokenTTL: getEnvDuration("GATEHOUSE_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:      getEnvInt("GATEHOUSE_BCRYPT_COST", 10),
	}
}

func loadFilesConfig() FilesConfig {
	return FilesConfig{
		Root:          getEnv("GATEHOUSE_FILES_ROOT", "./media"),
		MaxUploadSize: getEnvInt64("GATEHOUSE_MAX_UPLOAD_SIZE", 50<<20),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		RetentionDays: getEnvInt("GATEHOUSE_AUDIT_RETENTION_DAYS", 90),
		PurgeSchedule: getEnv("GATEHOUSE_AUDIT_PURGE_SCHEDULE", "0 3 * * *"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("GATEHOUSE_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("GATEHOUSE_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxOpenConns < c.Database.MaxIdleConns {
		return fmt.Errorf("postgres max conns must be >= idle conns")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("access token TTL must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}
	if c.Files.Root == "" {
		return fmt.Errorf("files root is required")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention days must be positive")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
