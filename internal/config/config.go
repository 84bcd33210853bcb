package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// envPrefix prefixes every environment variable, e.g. FENCEWATCH_LOCATION_SUBJECT.
const envPrefix = "FENCEWATCH"

// configPathEnv names an explicit YAML configuration file.
const configPathEnv = "FENCEWATCH_CONFIG"

// Config holds the configuration settings for the fencewatch service.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port for the HTTP API and monitoring endpoints.
// - Engine: The containment engine to use (planar, orb).
// - Location: Settings for the position source.
// - NATS: Connection and subjects for position input and status output.
// - Valkey: Snapshot store for the latest status.
// - Database: Configuration settings for the PostgreSQL transition recorder.
// - Geocoder: Place lookup used to center drawing maps.
// - RateLimit: Limits for fence edit requests.
type Config struct {
	Env       string          `mapstructure:"env"`
	Port      int             `mapstructure:"port"`
	Engine    string          `mapstructure:"engine"`
	Location  LocationConfig  `mapstructure:"location"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Database  PostgresConfig  `mapstructure:"database"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// LocationConfig holds the position source settings passed through to the platform.
type LocationConfig struct {
	Platform       string        `mapstructure:"platform"`        // Platform is the location platform type: nats, none.
	Subject        string        `mapstructure:"subject"`         // Subject carries device position messages.
	HighAccuracy   bool          `mapstructure:"high_accuracy"`   // HighAccuracy requests the most accurate fix.
	MaxSampleAge   time.Duration `mapstructure:"max_sample_age"`  // MaxSampleAge is the oldest acceptable fix.
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"` // AcquireTimeout is the longest wait for a fix.
}

// NATSConfig holds the NATS connection settings. An empty URL disables NATS.
type NATSConfig struct {
	URL            string `mapstructure:"url"`
	StatusSubject  string `mapstructure:"status_subject"`
	ReleaseSubject string `mapstructure:"release_subject"`
}

// ValkeyConfig holds the status snapshot settings. An empty address disables the snapshot.
type ValkeyConfig struct {
	Addr string        `mapstructure:"addr"`
	Key  string        `mapstructure:"key"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`  // Enabled turns on the transition recorder.
	Host     string `mapstructure:"host"`     // Host is the database server address.
	Port     string `mapstructure:"port"`     // Port is the database server port.
	User     string `mapstructure:"user"`     // User is the database user.
	Password string `mapstructure:"password"` // Password is the database user's password.
	Name     string `mapstructure:"name"`     // Name is the name of the database.
}

// GeocoderConfig selects the place lookup provider.
type GeocoderConfig struct {
	Provider  string `mapstructure:"provider"`   // Provider is google, nominatim or none.
	APIKey    string `mapstructure:"api_key"`    // APIKey is required by the Google provider.
	RateLimit int    `mapstructure:"rate_limit"` // RateLimit is requests per second; zero keeps the provider default.
	Region    string `mapstructure:"region"`     // Region biases lookups toward one country code.
}

// RateLimitConfig limits fence edits across all clients.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// MustLoad loads the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. It panics on invalid values.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path, ok := os.LookupEnv(configPathEnv); ok {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			panic("failed to read configuration file")
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				panic("failed to read configuration file")
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	port, err := cast.ToIntE(v.Get("port"))
	if err != nil {
		panic("failed to parse port for API server from configuration")
	}

	highAccuracy, err := cast.ToBoolE(v.Get("location.high_accuracy"))
	if err != nil {
		panic("failed to parse high accuracy flag from configuration, must be a boolean")
	}

	maxSampleAge, err := cast.ToDurationE(v.Get("location.max_sample_age"))
	if err != nil {
		panic("failed to parse max sample age from configuration")
	}

	acquireTimeout, err := cast.ToDurationE(v.Get("location.acquire_timeout"))
	if err != nil {
		panic("failed to parse acquire timeout from configuration")
	}

	ttl, err := cast.ToDurationE(v.Get("valkey.ttl"))
	if err != nil {
		panic("failed to parse snapshot ttl from configuration")
	}

	dbEnabled, err := cast.ToBoolE(v.Get("database.enabled"))
	if err != nil {
		panic("failed to parse database flag from configuration, must be a boolean")
	}

	geocoderRate, err := cast.ToIntE(v.Get("geocoder.rate_limit"))
	if err != nil {
		panic("failed to parse geocoder rate limit from configuration, must be an integer")
	}

	rps, err := cast.ToFloat64E(v.Get("rate_limit.rps"))
	if err != nil || rps <= 0 {
		panic("failed to parse rate limit from configuration, must be a positive number")
	}

	burst, err := cast.ToIntE(v.Get("rate_limit.burst"))
	if err != nil || burst <= 0 {
		panic("failed to parse rate limit burst from configuration, must be a positive integer")
	}

	// Positions arrive over NATS, so without a NATS URL there is nothing to watch.
	platform := v.GetString("location.platform")
	if v.GetString("nats.url") == "" && platform == "nats" {
		platform = "none"
	}

	return &Config{
		Env:    v.GetString("env"),
		Port:   port,
		Engine: v.GetString("engine"),
		Location: LocationConfig{
			Platform:       platform,
			Subject:        v.GetString("location.subject"),
			HighAccuracy:   highAccuracy,
			MaxSampleAge:   maxSampleAge,
			AcquireTimeout: acquireTimeout,
		},
		NATS: NATSConfig{
			URL:            v.GetString("nats.url"),
			StatusSubject:  v.GetString("nats.status_subject"),
			ReleaseSubject: v.GetString("nats.release_subject"),
		},
		Valkey: ValkeyConfig{
			Addr: v.GetString("valkey.addr"),
			Key:  v.GetString("valkey.key"),
			TTL:  ttl,
		},
		Database: PostgresConfig{
			Enabled:  dbEnabled,
			Host:     v.GetString("database.host"),
			Port:     v.GetString("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
		},
		Geocoder: GeocoderConfig{
			Provider:  v.GetString("geocoder.provider"),
			APIKey:    v.GetString("geocoder.api_key"),
			RateLimit: geocoderRate,
			Region:    v.GetString("geocoder.region"),
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("port", 8080)
	v.SetDefault("engine", "planar")

	v.SetDefault("location.platform", "nats")
	v.SetDefault("location.subject", "fencewatch.position")
	v.SetDefault("location.high_accuracy", true)
	v.SetDefault("location.max_sample_age", "30s")
	v.SetDefault("location.acquire_timeout", "27s")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.status_subject", "fencewatch.status")
	v.SetDefault("nats.release_subject", "fencewatch.overlay.release")

	v.SetDefault("valkey.addr", "")
	v.SetDefault("valkey.key", "fencewatch:status")
	v.SetDefault("valkey.ttl", "5m")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "fencewatch")

	v.SetDefault("geocoder.provider", "none")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("geocoder.rate_limit", 0)
	v.SetDefault("geocoder.region", "")

	v.SetDefault("rate_limit.rps", 2)
	v.SetDefault("rate_limit.burst", 5)
}
