package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Google    GoogleConfig    `mapstructure:"google"`
	Search    SearchConfig    `mapstructure:"search"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Events    EventsConfig    `mapstructure:"events"`
	Database  DatabaseConfig  `mapstructure:"database"`
	History   HistoryConfig   `mapstructure:"history"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GoogleConfig configures the Maps web services and the Weather API.
type GoogleConfig struct {
	MapsAPIKey     string        `mapstructure:"maps_api_key"`
	WeatherAPIKey  string        `mapstructure:"weather_api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MapsBaseURL    string        `mapstructure:"maps_base_url"`
	WeatherBaseURL string        `mapstructure:"weather_base_url"`
}

// SearchConfig holds the defaults of a search session.
type SearchConfig struct {
	DefaultRadiusMiles float64 `mapstructure:"default_radius_miles"`
	MaxResults         int     `mapstructure:"max_results"`
	FocusZoom          int     `mapstructure:"focus_zoom"`
	DefaultCategory    string  `mapstructure:"default_category"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// CacheConfig enables the valkey provider cache. TTLs are in seconds.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr"`
	PlacesTTL  int    `mapstructure:"places_ttl"`
	GeocodeTTL int    `mapstructure:"geocode_ttl"`
	RouteTTL   int    `mapstructure:"route_ttl"`
	WeatherTTL int    `mapstructure:"weather_ttl"`
}

// EventsConfig selects where search events go: none, nats or kafka.
type EventsConfig struct {
	Driver       string   `mapstructure:"driver"`
	NATSURL      string   `mapstructure:"nats_url"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("google.maps_api_key", "")
	v.SetDefault("google.weather_api_key", "")
	v.SetDefault("google.timeout", 5*time.Second)
	v.SetDefault("google.maps_base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("google.weather_base_url", "https://weather.googleapis.com/v1")
	v.SetDefault("search.default_radius_miles", 5.0)
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.focus_zoom", 14)
	v.SetDefault("search.default_category", string(domain.DefaultCategory))
	v.SetDefault("ratelimit.rps", 10.0)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.places_ttl", 300)
	v.SetDefault("cache.geocode_ttl", 86400)
	v.SetDefault("cache.route_ttl", 300)
	v.SetDefault("cache.weather_ttl", 600)
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.nats_url", "nats://localhost:4222")
	v.SetDefault("events.kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("events.kafka_topic", "halfway-searches")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "halfway")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "halfway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("history.enabled", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: HALFWAY_GOOGLE_MAPS_API_KEY → google.maps_api_key
	v.SetEnvPrefix("HALFWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// The weather lookup uses its own credential when one is given.
	if cfg.Google.WeatherAPIKey == "" {
		cfg.Google.WeatherAPIKey = cfg.Google.MapsAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Google.Timeout <= 0 {
		errs = append(errs, "google.timeout must be positive")
	}
	if c.Search.DefaultRadiusMiles <= 0 {
		errs = append(errs, "search.default_radius_miles must be positive")
	}
	if c.Search.MaxResults <= 0 || c.Search.MaxResults > 20 {
		errs = append(errs, fmt.Sprintf("search.max_results must be 1-20, got %d", c.Search.MaxResults))
	}
	if _, err := domain.ValidateCategory(c.Search.DefaultCategory); err != nil {
		errs = append(errs, fmt.Sprintf("search.default_category: %v", err))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, "ratelimit.rps and ratelimit.burst must be positive")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		errs = append(errs, "cache.addr is required when cache.enabled is true")
	}
	switch c.Events.Driver {
	case "none", "":
	case "nats":
		if c.Events.NATSURL == "" {
			errs = append(errs, "events.nats_url is required for the nats driver")
		}
	case "kafka":
		if len(c.Events.KafkaBrokers) == 0 || c.Events.KafkaTopic == "" {
			errs = append(errs, "events.kafka_brokers and events.kafka_topic are required for the kafka driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("events.driver must be none, nats or kafka, got %q", c.Events.Driver))
	}
	if c.History.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
