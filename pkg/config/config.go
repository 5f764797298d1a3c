package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vantage6/console/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Platform server connection
	Platform PlatformConfig `yaml:"platform"`

	// Redis connection for the event bridge
	Redis RedisConfig `yaml:"redis"`

	// Session lifecycle
	Session SessionConfig `yaml:"session"`

	// Entity cache
	Cache CacheConfig `yaml:"cache"`

	// Audit trail sinks
	Audit AuditConfig `yaml:"audit"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// PlatformConfig holds the connection to the platform server the console
// administers.
type PlatformConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

// RedisConfig holds the Redis connection for node and task events. Redis is
// optional; with an empty URL the event stream only carries locally
// generated events.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// SessionConfig holds console session lifecycle settings
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"`
	MaxSessions   int           `yaml:"max_sessions"`
}

// CacheConfig holds entity cache settings
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// AuditConfig holds audit trail sink settings
type AuditConfig struct {
	Enabled  bool   `yaml:"enabled"`
	FilePath string `yaml:"file_path"`
	DBPath   string `yaml:"db_path"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel     observability.LogLevel `yaml:"-"`
	LogLevelName string                 `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// Tracing
	TracingEnabled     bool   `yaml:"tracing_enabled"`
	TracingEndpoint    string `yaml:"tracing_endpoint"`
	TracingServiceName string `yaml:"tracing_service_name"`
	TracingInsecure    bool   `yaml:"tracing_insecure"`
}

// LoadConfig loads configuration. An optional YAML file (path from
// V6CONSOLE_CONFIG_FILE) supplies the base; environment variables override
// individual values.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("V6CONSOLE_CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.Observability.LogLevel = observability.ParseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "7681",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Platform: PlatformConfig{
			Timeout:  30 * time.Second,
			RetryMax: 3,
		},
		Redis: RedisConfig{
			Channel: "vantage6-events",
		},
		Session: SessionConfig{
			TTL:           8 * time.Hour,
			SweepSchedule: "*/5 * * * *",
			MaxSessions:   1000,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    512,
			TTL:     30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:  true,
			FilePath: "audit.log",
		},
		Observability: ObservabilityConfig{
			LogLevelName:       "info",
			MetricsEnabled:     true,
			TracingEndpoint:    "localhost:4317",
			TracingServiceName: "consoled",
			TracingInsecure:    true,
		},
	}
}

// loadFile merges a YAML config file into cfg.
func loadFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg values from V6CONSOLE_* environment variables.
func applyEnv(cfg *Config) {
	setEnv(&cfg.Server.Host, "V6CONSOLE_HOST")
	setEnv(&cfg.Server.Port, "V6CONSOLE_PORT")
	setEnv(&cfg.Server.HealthPort, "V6CONSOLE_HEALTH_PORT")
	setEnvDuration(&cfg.Server.ReadTimeout, "V6CONSOLE_READ_TIMEOUT")
	setEnvDuration(&cfg.Server.WriteTimeout, "V6CONSOLE_WRITE_TIMEOUT")
	setEnvDuration(&cfg.Server.IdleTimeout, "V6CONSOLE_IDLE_TIMEOUT")
	setEnvDuration(&cfg.Server.ShutdownTimeout, "V6CONSOLE_SHUTDOWN_TIMEOUT")

	setEnv(&cfg.Platform.URL, "V6CONSOLE_PLATFORM_URL")
	setEnvDuration(&cfg.Platform.Timeout, "V6CONSOLE_PLATFORM_TIMEOUT")
	setEnvInt(&cfg.Platform.RetryMax, "V6CONSOLE_PLATFORM_RETRY_MAX")

	setEnv(&cfg.Redis.URL, "V6CONSOLE_REDIS_URL")
	setEnv(&cfg.Redis.Password, "V6CONSOLE_REDIS_PASSWORD")
	setEnvInt(&cfg.Redis.DB, "V6CONSOLE_REDIS_DB")
	setEnv(&cfg.Redis.Channel, "V6CONSOLE_REDIS_CHANNEL")

	setEnvDuration(&cfg.Session.TTL, "V6CONSOLE_SESSION_TTL")
	setEnv(&cfg.Session.SweepSchedule, "V6CONSOLE_SESSION_SWEEP_SCHEDULE")
	setEnvInt(&cfg.Session.MaxSessions, "V6CONSOLE_SESSION_MAX")

	setEnvBool(&cfg.Cache.Enabled, "V6CONSOLE_CACHE_ENABLED")
	setEnvInt(&cfg.Cache.Size, "V6CONSOLE_CACHE_SIZE")
	setEnvDuration(&cfg.Cache.TTL, "V6CONSOLE_CACHE_TTL")

	setEnvBool(&cfg.Audit.Enabled, "V6CONSOLE_AUDIT_ENABLED")
	setEnv(&cfg.Audit.FilePath, "V6CONSOLE_AUDIT_FILE")
	setEnv(&cfg.Audit.DBPath, "V6CONSOLE_AUDIT_DB")

	setEnv(&cfg.Observability.LogLevelName, "V6CONSOLE_LOG_LEVEL")
	setEnvBool(&cfg.Observability.MetricsEnabled, "V6CONSOLE_METRICS_ENABLED")
	setEnvBool(&cfg.Observability.TracingEnabled, "V6CONSOLE_TRACING_ENABLED")
	setEnv(&cfg.Observability.TracingEndpoint, "V6CONSOLE_TRACING_ENDPOINT")
	setEnv(&cfg.Observability.TracingServiceName, "V6CONSOLE_TRACING_SERVICE_NAME")
	setEnvBool(&cfg.Observability.TracingInsecure, "V6CONSOLE_TRACING_INSECURE")
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

	if c.Platform.URL == "" {
		return fmt.Errorf("platform URL is required (V6CONSOLE_PLATFORM_URL)")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return fmt.Errorf("cache size must be positive when the cache is enabled")
	}
	if c.Audit.Enabled && c.Audit.FilePath == "" && c.Audit.DBPath == "" {
		return fmt.Errorf("audit requires a file path or database path when enabled")
	}

	if c.Observability.TracingEnabled {
		if c.Observability.TracingEndpoint == "" {
			return fmt.Errorf("tracing endpoint is required when tracing is enabled")
		}
		if c.Observability.TracingServiceName == "" {
			return fmt.Errorf("tracing service name is required when tracing is enabled")
		}
	}

	return nil
}

// setEnv overrides dest when the environment variable is set
func setEnv(dest *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}

// setEnvBool overrides dest when the environment variable is set
func setEnvBool(dest *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dest = strings.ToLower(value) == "true" || value == "1"
	}
}

// setEnvInt overrides dest when the environment variable parses as an int
func setEnvInt(dest *int, key string) {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			*dest = intVal
		}
	}
}

// setEnvDuration overrides dest when the environment variable parses as a
// duration
func setEnvDuration(dest *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			*dest = duration
		}
	}
}
