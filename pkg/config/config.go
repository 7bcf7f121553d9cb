package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/stash/pkg/observability"
)

// Store types accepted by Validate.
const (
	StoreTypeFile     = "file"
	StoreTypeSQLite   = "sqlite"
	StoreTypePostgres = "postgres"
	StoreTypeRedis    = "redis"
	StoreTypeS3       = "s3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Store configuration
	Store StoreConfig

	// Observability configuration
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
}

// StoreConfig selects and configures the state backend
type StoreConfig struct {
	Type string

	// File backend
	StateFile      string
	SaveDelay      time.Duration
	WatchEnabled   bool
	BackupSchedule string

	// SQLite backend
	SQLitePath string

	// Postgres backend
	PostgresURL string

	// Redis backend
	RedisURL       string
	RedisPassword  string
	RedisDB        int
	RedisCacheSize int
	RedisTTL       time.Duration

	// S3 backend
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig resolves configuration from defaults, then the YAML file named
// by STASH_CONFIG_FILE, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if file := getEnv("STASH_CONFIG_FILE", ""); file != "" {
		if err := applyFile(cfg, file); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Type:           StoreTypeFile,
			StateFile:      "/var/stash/state.json",
			SaveDelay:      250 * time.Millisecond,
			SQLitePath:     "/var/stash/stash.db",
			RedisCacheSize: 256,
			S3Region:       "us-east-1",
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "stash",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// fileConfig mirrors Config for YAML decoding. Pointers distinguish "unset"
// from zero values; durations are strings like "250ms".
type fileConfig struct {
	Server struct {
		Host            *string `yaml:"host"`
		Port            *string `yaml:"port"`
		ReadTimeout     *string `yaml:"read_timeout"`
		WriteTimeout    *string `yaml:"write_timeout"`
		IdleTimeout     *string `yaml:"idle_timeout"`
		ShutdownTimeout *string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Store struct {
		Type           *string `yaml:"type"`
		StateFile      *string `yaml:"state_file"`
		SaveDelay      *string `yaml:"save_delay"`
		WatchEnabled   *bool   `yaml:"watch_enabled"`
		BackupSchedule *string `yaml:"backup_schedule"`
		SQLitePath     *string `yaml:"sqlite_path"`
		PostgresURL    *string `yaml:"postgres_url"`
		RedisURL       *string `yaml:"redis_url"`
		RedisPassword  *string `yaml:"redis_password"`
		RedisDB        *int    `yaml:"redis_db"`
		RedisCacheSize *int    `yaml:"redis_cache_size"`
		RedisTTL       *string `yaml:"redis_ttl"`
		S3Bucket       *string `yaml:"s3_bucket"`
		S3Region       *string `yaml:"s3_region"`
		S3Endpoint     *string `yaml:"s3_endpoint"`
		S3AccessKey    *string `yaml:"s3_access_key"`
		S3SecretKey    *string `yaml:"s3_secret_key"`
	} `yaml:"store"`
	Observability struct {
		LogLevel       *string `yaml:"log_level"`
		MetricsEnabled *bool   `yaml:"metrics_enabled"`
		OTelEnabled    *bool   `yaml:"otel_enabled"`
		OTelEndpoint   *string `yaml:"otel_endpoint"`
		OTelService    *string `yaml:"otel_service_name"`
		OTelVersion    *string `yaml:"otel_service_version"`
		OTelInsecure   *bool   `yaml:"otel_insecure"`
	} `yaml:"observability"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&cfg.Server.Host, fc.Server.Host)
	setString(&cfg.Server.Port, fc.Server.Port)
	if err := setDuration(&cfg.Server.ReadTimeout, fc.Server.ReadTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.Server.WriteTimeout, fc.Server.WriteTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.Server.IdleTimeout, fc.Server.IdleTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.Server.ShutdownTimeout, fc.Server.ShutdownTimeout); err != nil {
		return err
	}

	setString(&cfg.Store.Type, fc.Store.Type)
	setString(&cfg.Store.StateFile, fc.Store.StateFile)
	if err := setDuration(&cfg.Store.SaveDelay, fc.Store.SaveDelay); err != nil {
		return err
	}
	setBool(&cfg.Store.WatchEnabled, fc.Store.WatchEnabled)
	setString(&cfg.Store.BackupSchedule, fc.Store.BackupSchedule)
	setString(&cfg.Store.SQLitePath, fc.Store.SQLitePath)
	setString(&cfg.Store.PostgresURL, fc.Store.PostgresURL)
	setString(&cfg.Store.RedisURL, fc.Store.RedisURL)
	setString(&cfg.Store.RedisPassword, fc.Store.RedisPassword)
	setInt(&cfg.Store.RedisDB, fc.Store.RedisDB)
	setInt(&cfg.Store.RedisCacheSize, fc.Store.RedisCacheSize)
	if err := setDuration(&cfg.Store.RedisTTL, fc.Store.RedisTTL); err != nil {
		return err
	}
	setString(&cfg.Store.S3Bucket, fc.Store.S3Bucket)
	setString(&cfg.Store.S3Region, fc.Store.S3Region)
	setString(&cfg.Store.S3Endpoint, fc.Store.S3Endpoint)
	setString(&cfg.Store.S3AccessKey, fc.Store.S3AccessKey)
	setString(&cfg.Store.S3SecretKey, fc.Store.S3SecretKey)

	if fc.Observability.LogLevel != nil {
		cfg.Observability.LogLevel = observability.ParseLogLevel(*fc.Observability.LogLevel)
	}
	setBool(&cfg.Observability.MetricsEnabled, fc.Observability.MetricsEnabled)
	setBool(&cfg.Observability.OTelEnabled, fc.Observability.OTelEnabled)
	setString(&cfg.Observability.OTelEndpoint, fc.Observability.OTelEndpoint)
	setString(&cfg.Observability.OTelServiceName, fc.Observability.OTelService)
	setString(&cfg.Observability.OTelServiceVersion, fc.Observability.OTelVersion)
	setBool(&cfg.Observability.OTelInsecure, fc.Observability.OTelInsecure)

	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("STASH_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("STASH_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("STASH_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("STASH_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("STASH_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("STASH_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Store.Type = getEnv("STASH_STORE_TYPE", cfg.Store.Type)
	cfg.Store.StateFile = getEnv("STASH_STATE_FILE", cfg.Store.StateFile)
	cfg.Store.SaveDelay = getEnvDuration("STASH_SAVE_DELAY", cfg.Store.SaveDelay)
	cfg.Store.WatchEnabled = getEnvBool("STASH_WATCH_ENABLED", cfg.Store.WatchEnabled)
	cfg.Store.BackupSchedule = getEnv("STASH_BACKUP_SCHEDULE", cfg.Store.BackupSchedule)
	cfg.Store.SQLitePath = getEnv("STASH_SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.PostgresURL = getEnv("STASH_POSTGRES_URL", cfg.Store.PostgresURL)
	cfg.Store.RedisURL = getEnv("STASH_REDIS_URL", cfg.Store.RedisURL)
	cfg.Store.RedisPassword = getEnv("STASH_REDIS_PASSWORD", cfg.Store.RedisPassword)
	cfg.Store.RedisDB = getEnvInt("STASH_REDIS_DB", cfg.Store.RedisDB)
	cfg.Store.RedisCacheSize = getEnvInt("STASH_REDIS_CACHE_SIZE", cfg.Store.RedisCacheSize)
	cfg.Store.RedisTTL = getEnvDuration("STASH_REDIS_TTL", cfg.Store.RedisTTL)
	cfg.Store.S3Bucket = getEnv("STASH_S3_BUCKET", cfg.Store.S3Bucket)
	cfg.Store.S3Region = getEnv("STASH_S3_REGION", cfg.Store.S3Region)
	cfg.Store.S3Endpoint = getEnv("STASH_S3_ENDPOINT", cfg.Store.S3Endpoint)
	cfg.Store.S3AccessKey = getEnv("STASH_S3_ACCESS_KEY", cfg.Store.S3AccessKey)
	cfg.Store.S3SecretKey = getEnv("STASH_S3_SECRET_KEY", cfg.Store.S3SecretKey)

	if level := getEnv("STASH_LOG_LEVEL", ""); level != "" {
		cfg.Observability.LogLevel = observability.ParseLogLevel(level)
	}
	cfg.Observability.MetricsEnabled = getEnvBool("STASH_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.OTelEnabled = getEnvBool("STASH_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("STASH_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelServiceName = getEnv("STASH_OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelServiceVersion = getEnv("STASH_OTEL_SERVICE_VERSION", cfg.Observability.OTelServiceVersion)
	cfg.Observability.OTelInsecure = getEnvBool("STASH_OTEL_INSECURE", cfg.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Store.Type {
	case StoreTypeFile:
		if c.Store.StateFile == "" {
			return fmt.Errorf("state file path is required for file store")
		}
	case StoreTypeSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite store")
		}
	case StoreTypePostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres store")
		}
	case StoreTypeRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis store")
		}
	case StoreTypeS3:
		if c.Store.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 store")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be file, sqlite, postgres, redis, or s3)", c.Store.Type)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) error {
	if src == nil {
		return nil
	}
	parsed, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("invalid duration %q in config file: %w", *src, err)
	}
	*dst = parsed
	return nil
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
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
