package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/fencewatch/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestMustLoad_Defaults(t *testing.T) {
	cfg := config.MustLoad()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "planar", cfg.Engine)
	assert.Equal(t, "nats", cfg.Location.Platform)
	assert.Equal(t, "fencewatch.position", cfg.Location.Subject)
	assert.True(t, cfg.Location.HighAccuracy)
	assert.Equal(t, 30*time.Second, cfg.Location.MaxSampleAge)
	assert.Equal(t, 27*time.Second, cfg.Location.AcquireTimeout)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "fencewatch.status", cfg.NATS.StatusSubject)
	assert.Equal(t, "fencewatch.overlay.release", cfg.NATS.ReleaseSubject)
	assert.Empty(t, cfg.Valkey.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Valkey.TTL)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "none", cfg.Geocoder.Provider)
	assert.Zero(t, cfg.Geocoder.RateLimit)
	assert.InDelta(t, 2, cfg.RateLimit.RPS, 0)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestMustLoad_WithoutNATS(t *testing.T) {
	t.Run("empty url disables the nats platform", func(t *testing.T) {
		t.Setenv("FENCEWATCH_NATS_URL", "")

		cfg := config.MustLoad()

		assert.Empty(t, cfg.NATS.URL)
		assert.Equal(t, "none", cfg.Location.Platform)
	})

	t.Run("other platforms are kept", func(t *testing.T) {
		t.Setenv("FENCEWATCH_NATS_URL", "")
		t.Setenv("FENCEWATCH_LOCATION_PLATFORM", "replay")

		cfg := config.MustLoad()

		assert.Equal(t, "replay", cfg.Location.Platform)
	})
}

func TestMustLoad_FromEnv(t *testing.T) {
	t.Setenv("FENCEWATCH_ENV", "local")
	t.Setenv("FENCEWATCH_PORT", "9090")
	t.Setenv("FENCEWATCH_ENGINE", "orb")
	t.Setenv("FENCEWATCH_LOCATION_HIGH_ACCURACY", "false")
	t.Setenv("FENCEWATCH_LOCATION_MAX_SAMPLE_AGE", "1m")
	t.Setenv("FENCEWATCH_VALKEY_ADDR", "localhost:6379")
	t.Setenv("FENCEWATCH_DATABASE_ENABLED", "true")
	t.Setenv("FENCEWATCH_DATABASE_HOST", "testHost")
	t.Setenv("FENCEWATCH_DATABASE_PORT", "12345")
	t.Setenv("FENCEWATCH_DATABASE_USER", "admin")
	t.Setenv("FENCEWATCH_DATABASE_PASSWORD", "adminpass")
	t.Setenv("FENCEWATCH_DATABASE_NAME", "testName")
	t.Setenv("FENCEWATCH_GEOCODER_PROVIDER", "google")
	t.Setenv("FENCEWATCH_GEOCODER_API_KEY", "testAPIKey")
	t.Setenv("FENCEWATCH_GEOCODER_RATE_LIMIT", "10")
	t.Setenv("FENCEWATCH_GEOCODER_REGION", "ca")

	cfg := config.MustLoad()

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "orb", cfg.Engine)
	assert.False(t, cfg.Location.HighAccuracy)
	assert.Equal(t, time.Minute, cfg.Location.MaxSampleAge)
	assert.Equal(t, "localhost:6379", cfg.Valkey.Addr)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "testHost", cfg.Database.Host)
	assert.Equal(t, "12345", cfg.Database.Port)
	assert.Equal(t, "admin", cfg.Database.User)
	assert.Equal(t, "adminpass", cfg.Database.Password)
	assert.Equal(t, "testName", cfg.Database.Name)
	assert.Equal(t, "google", cfg.Geocoder.Provider)
	assert.Equal(t, "testAPIKey", cfg.Geocoder.APIKey)
	assert.Equal(t, 10, cfg.Geocoder.RateLimit)
	assert.Equal(t, "ca", cfg.Geocoder.Region)
}

func TestMustLoad_FromFile(t *testing.T) {
	defer filet.CleanUp(t)

	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "fencewatch.yaml")
	filet.File(t, path, `
env: development
engine: orb
location:
  platform: none
  acquire_timeout: 10s
nats:
  status_subject: office.status
rate_limit:
  rps: 0.5
  burst: 1
`)
	t.Setenv("FENCEWATCH_CONFIG", path)
	t.Setenv("FENCEWATCH_ENGINE", "planar")

	cfg := config.MustLoad()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "planar", cfg.Engine, "environment overrides the file")
	assert.Equal(t, "none", cfg.Location.Platform)
	assert.Equal(t, 10*time.Second, cfg.Location.AcquireTimeout)
	assert.Equal(t, 30*time.Second, cfg.Location.MaxSampleAge, "unset keys keep defaults")
	assert.Equal(t, "office.status", cfg.NATS.StatusSubject)
	assert.InDelta(t, 0.5, cfg.RateLimit.RPS, 0)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
}

func TestMustLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		panic string
	}{
		{"port", "FENCEWATCH_PORT", "error_value", "failed to parse port for API server from configuration"},
		{"high accuracy", "FENCEWATCH_LOCATION_HIGH_ACCURACY", "maybe",
			"failed to parse high accuracy flag from configuration, must be a boolean"},
		{"max sample age", "FENCEWATCH_LOCATION_MAX_SAMPLE_AGE", "error_value",
			"failed to parse max sample age from configuration"},
		{"acquire timeout", "FENCEWATCH_LOCATION_ACQUIRE_TIMEOUT", "error_value",
			"failed to parse acquire timeout from configuration"},
		{"snapshot ttl", "FENCEWATCH_VALKEY_TTL", "error_value", "failed to parse snapshot ttl from configuration"},
		{"database flag", "FENCEWATCH_DATABASE_ENABLED", "maybe",
			"failed to parse database flag from configuration, must be a boolean"},
		{"geocoder rate limit", "FENCEWATCH_GEOCODER_RATE_LIMIT", "error_value",
			"failed to parse geocoder rate limit from configuration, must be an integer"},
		{"rate limit", "FENCEWATCH_RATE_LIMIT_RPS", "-1",
			"failed to parse rate limit from configuration, must be a positive number"},
		{"rate limit burst", "FENCEWATCH_RATE_LIMIT_BURST", "error_value",
			"failed to parse rate limit burst from configuration, must be a positive integer"},
		{"missing file", "FENCEWATCH_CONFIG", "/nonexistent/fencewatch.yaml", "failed to read configuration file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			assert.PanicsWithValue(t, tt.panic, func() {
				config.MustLoad()
			})
		})
	}
}
