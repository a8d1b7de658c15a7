package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/grove/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "GROVE_TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "GROVE_TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvTyped(t *testing.T) {
	t.Setenv("GROVE_TEST_BOOL", "1")
	t.Setenv("GROVE_TEST_INT", "not-a-number")
	t.Setenv("GROVE_TEST_INT64", "2048")
	t.Setenv("GROVE_TEST_DURATION", "90s")

	assert.True(t, getEnvBool("GROVE_TEST_BOOL", false))
	assert.Equal(t, 7, getEnvInt("GROVE_TEST_INT", 7))
	assert.Equal(t, int64(2048), getEnvInt64("GROVE_TEST_INT64", 0))
	assert.Equal(t, 90*time.Second, getEnvDuration("GROVE_TEST_DURATION", 0))
	assert.Equal(t, time.Second, getEnvDuration("GROVE_TEST_DURATION_UNSET", time.Second))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.True(t, cfg.Storage.Bootstrap)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.Level())
	assert.Equal(t, "@every 1m", cfg.StatsSchedule)
	assert.False(t, cfg.SeedOnStart)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GROVE_PORT", "3000")
	t.Setenv("GROVE_STORAGE_DRIVER", "postgres")
	t.Setenv("GROVE_DATABASE_URL", "postgres://grove@localhost/grove?sslmode=disable")
	t.Setenv("GROVE_REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("GROVE_RATE_LIMIT_REQUESTS", "5")
	t.Setenv("GROVE_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("GROVE_LOG_LEVEL", "debug")
	t.Setenv("GROVE_SEED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
	assert.Equal(t, 5, cfg.RateLimit.Limiter().RequestsPerWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.Level())
	assert.True(t, cfg.SeedOnStart)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove.yaml")
	writeFile(t, path, `
server:
  port: "8181"
  request_timeout: 2s
storage:
  driver: sqlite
  dsn: "file:test.db?_foreign_keys=on"
rate_limit:
  enabled: false
observability:
  log_level: warn
  otel_enabled: true
  otel_endpoint: collector:4317
stats_schedule: "*/5 * * * *"
`)
	t.Setenv("GROVE_PORT", "8282")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8282", cfg.Server.Port, "env wins over file")
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset keys keep defaults")
	assert.Equal(t, "file:test.db?_foreign_keys=on", cfg.Storage.DSN)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, observability.WarnLevel, cfg.Observability.Level())
	assert.Equal(t, observability.OTelConfig{
		Enabled:        true,
		Endpoint:       "collector:4317",
		ServiceName:    "grove",
		ServiceVersion: "1.0.0",
		Insecure:       true,
	}, cfg.Observability.OTel())
	assert.Equal(t, "*/5 * * * *", cfg.StatsSchedule)
}

func TestLoadConfig_UsesEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove.yaml")
	writeFile(t, path, "server:\n  health_port: \"9191\"\n")
	t.Setenv(EnvConfigFile, path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Server.HealthPort)
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := Default()

	err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "server: [unterminated")
	err = cfg.LoadFile(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"missing health port", func(c *Config) { c.Server.HealthPort = "" }, "health port is required"},
		{"same ports", func(c *Config) { c.Server.HealthPort = c.Server.Port }, "must be different"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, "invalid storage driver: mongo"},
		{"postgres without url", func(c *Config) {
			c.Storage.Driver = "postgres"
			c.Storage.DSN = ""
		}, "database URL is required"},
		{"zero rate", func(c *Config) { c.RateLimit.Requests = 0 }, "rate limit requests must be positive"},
		{"zero rate while disabled", func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.Requests = 0
		}, ""},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, "rate limit window must be positive"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, "OpenTelemetry endpoint is required"},
		{"bad schedule", func(c *Config) { c.StatsSchedule = "every minute" }, "invalid stats schedule"},
		{"no schedule", func(c *Config) { c.StatsSchedule = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grove.yaml")
	writeFile(t, path, "observability:\n  log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	levels := make(chan observability.LogLevel, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *Config) {
			levels <- cfg.Observability.Level()
		}, func(error) {})
	}()

	// The watcher registers asynchronously; keep rewriting until it notices.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for seen := false; !seen; {
		select {
		case level := <-levels:
			seen = level == observability.DebugLevel
		case <-ticker.C:
			writeFile(t, path, "observability:\n  log_level: debug\n")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "grove.yaml"), func(*Config) {}, func(error) {})

	assert.Error(t, err)
}
