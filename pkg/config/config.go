package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/grove/pkg/middleware"
	"github.com/platinummonkey/grove/pkg/observability"
	"github.com/platinummonkey/grove/pkg/storage"
)

// EnvConfigFile names the optional YAML file loaded before the environment.
const EnvConfigFile = "GROVE_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig           `yaml:"server"`
	Storage       storage.Config         `yaml:"storage"`
	Redis         middleware.RedisConfig `yaml:"redis"`
	RateLimit     RateLimitConfig        `yaml:"rate_limit"`
	Observability ObservabilityConfig    `yaml:"observability"`

	// SeedOnStart runs the seeder after the schema is bootstrapped.
	SeedOnStart bool `yaml:"seed_on_start"`
	// StatsSchedule is a cron spec for refreshing the entity gauges. Empty
	// disables the collector.
	StatsSchedule string `yaml:"stats_schedule"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// RateLimitConfig controls the per-IP limiter. Without a Redis URL the
// limiter is kept in process memory.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Burst    int           `yaml:"burst"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
}

// Level parses LogLevel.
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel converts the settings for observability.InitOTel.
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
	}
}

// Limiter converts the settings for the middleware package.
func (r RateLimitConfig) Limiter() *middleware.RateLimitConfig {
	return &middleware.RateLimitConfig{
		RequestsPerWindow: r.Requests,
		WindowDuration:    r.Window,
		BurstSize:         r.Burst,
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  10 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   time.Minute,
			Burst:    10,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "grove",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
		StatsSchedule: "@every 1m",
	}
}

// LoadConfig builds the configuration from defaults, the file named by
// GROVE_CONFIG_FILE (if any) and GROVE_* environment variables, in that
// order, and validates the result.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load is LoadConfig with an explicit file path. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile merges a YAML file into cfg. Keys missing from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("GROVE_HOST", s.Host)
	s.Port = getEnv("GROVE_PORT", s.Port)
	s.HealthPort = getEnv("GROVE_HEALTH_PORT", s.HealthPort)
	s.ReadTimeout = getEnvDuration("GROVE_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("GROVE_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("GROVE_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("GROVE_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.RequestTimeout = getEnvDuration("GROVE_REQUEST_TIMEOUT", s.RequestTimeout)
	s.MaxBodyBytes = getEnvInt64("GROVE_MAX_BODY_BYTES", s.MaxBodyBytes)
	if origins := getEnv("GROVE_CORS_ORIGINS", ""); origins != "" {
		s.CORSOrigins = splitList(origins)
	}

	st := &c.Storage
	st.Driver = getEnv("GROVE_STORAGE_DRIVER", st.Driver)
	st.DSN = getEnv("GROVE_DATABASE_URL", st.DSN)
	st.MaxConns = getEnvInt("GROVE_DB_MAX_CONNS", st.MaxConns)
	st.MinConns = getEnvInt("GROVE_DB_MIN_CONNS", st.MinConns)
	st.Timeout = getEnvDuration("GROVE_DB_TIMEOUT", st.Timeout)
	st.MaxLifetime = getEnvDuration("GROVE_DB_MAX_LIFETIME", st.MaxLifetime)
	st.MaxIdleTime = getEnvDuration("GROVE_DB_MAX_IDLE_TIME", st.MaxIdleTime)
	st.Bootstrap = getEnvBool("GROVE_DB_BOOTSTRAP", st.Bootstrap)

	r := &c.Redis
	r.URL = getEnv("GROVE_REDIS_URL", r.URL)
	r.Password = getEnv("GROVE_REDIS_PASSWORD", r.Password)
	r.DB = getEnvInt("GROVE_REDIS_DB", r.DB)
	r.MaxRetries = getEnvInt("GROVE_REDIS_MAX_RETRIES", r.MaxRetries)
	r.PoolSize = getEnvInt("GROVE_REDIS_POOL_SIZE", r.PoolSize)

	rl := &c.RateLimit
	rl.Enabled = getEnvBool("GROVE_RATE_LIMIT_ENABLED", rl.Enabled)
	rl.Requests = getEnvInt("GROVE_RATE_LIMIT_REQUESTS", rl.Requests)
	rl.Window = getEnvDuration("GROVE_RATE_LIMIT_WINDOW", rl.Window)
	rl.Burst = getEnvInt("GROVE_RATE_LIMIT_BURST", rl.Burst)

	o := &c.Observability
	o.LogLevel = getEnv("GROVE_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("GROVE_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("GROVE_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("GROVE_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("GROVE_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("GROVE_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("GROVE_OTEL_INSECURE", o.OTelInsecure)

	c.SeedOnStart = getEnvBool("GROVE_SEED", c.SeedOnStart)
	c.StatsSchedule = getEnv("GROVE_STATS_SCHEDULE", c.StatsSchedule)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.HealthPort == "" {
		return errors.New("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return errors.New("server port and health port must be different")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "postgres", "postgresql":
		if c.Storage.DSN == "" {
			return errors.New("database URL is required for postgres storage")
		}
	case "sqlite", "sqlite3":
		if c.Storage.DSN == "" {
			return errors.New("database DSN is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be postgres or sqlite)", c.Storage.Driver)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			return errors.New("rate limit requests must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return errors.New("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	if c.StatsSchedule != "" {
		if _, err := cron.ParseStandard(c.StatsSchedule); err != nil {
			return fmt.Errorf("invalid stats schedule %q: %w", c.StatsSchedule, err)
		}
	}

	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
