// Package config loads the deal planner configuration from config.yaml, an
// optional .env file and DEAL_PLANNER_* environment variables.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/kosarica/deal-planner/internal/cache/rediscache"
	"github.com/kosarica/deal-planner/internal/discounts"
	"github.com/kosarica/deal-planner/internal/discounts/filesource"
	"github.com/kosarica/deal-planner/internal/discounts/httpsource"
	"github.com/kosarica/deal-planner/internal/discounts/pgsource"
	"github.com/kosarica/deal-planner/internal/matching"
	"github.com/kosarica/deal-planner/internal/middleware"
	"github.com/kosarica/deal-planner/internal/optimizer"
	"github.com/kosarica/deal-planner/internal/savings"
	"github.com/kosarica/deal-planner/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g.
// DEAL_PLANNER_SOURCE_TYPE=postgres.
const EnvPrefix = "DEAL_PLANNER"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Source types.
const (
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig                 `mapstructure:"server"`
	Logging   LoggingConfig                `mapstructure:"logging"`
	RateLimit middleware.RateLimiterConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig                  `mapstructure:"cache"`
	Source    SourceConfig                 `mapstructure:"source"`
	Discounts discounts.Config             `mapstructure:"discounts"`
	Matching  matching.Config              `mapstructure:"matching"`
	Optimizer optimizer.Config             `mapstructure:"optimizer"`
	Savings   savings.Config               `mapstructure:"savings"`
	Telemetry telemetry.Config             `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// CacheConfig selects the discount cache backend.
type CacheConfig struct {
	Backend       string            `mapstructure:"backend"`
	SweepInterval time.Duration     `mapstructure:"sweep_interval"`
	Redis         rediscache.Config `mapstructure:"redis"`
}

// SourceConfig selects the discount source and holds the settings of each
// kind. Only the selected kind is validated.
type SourceConfig struct {
	Type     string            `mapstructure:"type"`
	HTTP     httpsource.Config `mapstructure:"http"`
	Postgres pgsource.Config   `mapstructure:"postgres"`
	File     filesource.Config `mapstructure:"file"`

	// PruneInterval is how often the server deletes expired offers from
	// the postgres source. Zero disables pruning.
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// ErrInvalidConfig is returned for an invalid configuration value.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            3000,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		RateLimit: middleware.DefaultRateLimiterConfig(),
		Cache: CacheConfig{
			Backend:       CacheMemory,
			SweepInterval: time.Minute,
			Redis:         rediscache.Config{URL: "redis://localhost:6379/0", KeyPrefix: "deal-planner:", DialTimeout: 5 * time.Second},
		},
		Source: SourceConfig{
			Type: SourceFile,
			HTTP: httpsource.Config{Timeout: 20 * time.Second, RequestsPerSecond: 2},
			Postgres: pgsource.Config{
				MaxConns:        10,
				MinConns:        2,
				MaxConnLifetime: time.Hour,
				MaxConnIdleTime: 30 * time.Minute,
			},
			File:          filesource.Config{Path: "./data/offers"},
			PruneInterval: time.Hour,
		},
		Discounts: discounts.Defaults(),
		Matching:  matching.Defaults(),
		Optimizer: optimizer.Defaults(),
		Savings:   savings.Defaults(),
		Telemetry: telemetry.Defaults(),
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return ErrInvalidConfig{Field: "server.port", Reason: "must be between 1 and 65535"}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return ErrInvalidConfig{Field: "logging.format", Reason: "must be json or console"}
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.URL == "" {
			return ErrInvalidConfig{Field: "cache.redis.url", Reason: "is required for the redis backend"}
		}
	default:
		return ErrInvalidConfig{Field: "cache.backend", Reason: "must be memory or redis"}
	}

	switch c.Source.Type {
	case SourceHTTP:
		if c.Source.HTTP.BaseURL == "" {
			return ErrInvalidConfig{Field: "source.http.base_url", Reason: "is required for the http source"}
		}
	case SourcePostgres:
		if c.Source.Postgres.URL == "" {
			return ErrInvalidConfig{Field: "source.postgres.url", Reason: "is required for the postgres source"}
		}
	case SourceFile:
		if c.Source.File.Path == "" {
			return ErrInvalidConfig{Field: "source.file.path", Reason: "is required for the file source"}
		}
	default:
		return ErrInvalidConfig{Field: "source.type", Reason: "must be http, postgres or file"}
	}

	if err := c.Discounts.Validate(); err != nil {
		return fmt.Errorf("discounts: %w", err)
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	if err := c.Optimizer.Validate(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if err := c.Savings.Validate(); err != nil {
		return fmt.Errorf("savings: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// Load loads the configuration from file, .env, and environment variables,
// then validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// map-valued sections are not registered as viper keys, so start from
	// the built-in values and let viper overwrite what it knows about
	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env file found by parsing KEY=VALUE lines
// into the process environment. Existing variables win.
func loadEnvFile() error {
	for _, path := range []string{".", "./config"} {
		envFile := path + "/.env"
		if _, err := os.Stat(envFile); err == nil {
			return loadDotEnvFile(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		os.Setenv(key, strings.Trim(strings.TrimSpace(value), "\"'"))
	}
	return scanner.Err()
}

// bindEnvVars binds conventional unprefixed variables.
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("source.postgres.url", EnvPrefix+"_SOURCE_POSTGRES_URL", "DATABASE_URL")
	v.BindEnv("cache.redis.url", EnvPrefix+"_CACHE_REDIS_URL", "REDIS_URL")
	v.BindEnv("source.http.api_key", EnvPrefix+"_SOURCE_HTTP_API_KEY", "DISCOUNT_API_KEY")
	v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults registers every scalar key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.no_color", d.Logging.NoColor)

	v.SetDefault("rate_limit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst_size", d.RateLimit.BurstSize)
	v.SetDefault("rate_limit.idle_timeout", d.RateLimit.IdleTimeout)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.sweep_interval", d.Cache.SweepInterval)
	v.SetDefault("cache.redis.url", d.Cache.Redis.URL)
	v.SetDefault("cache.redis.key_prefix", d.Cache.Redis.KeyPrefix)
	v.SetDefault("cache.redis.dial_timeout", d.Cache.Redis.DialTimeout)

	v.SetDefault("source.type", d.Source.Type)
	v.SetDefault("source.http.base_url", d.Source.HTTP.BaseURL)
	v.SetDefault("source.http.api_key", d.Source.HTTP.APIKey)
	v.SetDefault("source.http.timeout", d.Source.HTTP.Timeout)
	v.SetDefault("source.http.requests_per_second", d.Source.HTTP.RequestsPerSecond)
	v.SetDefault("source.postgres.url", d.Source.Postgres.URL)
	v.SetDefault("source.postgres.max_conns", d.Source.Postgres.MaxConns)
	v.SetDefault("source.postgres.min_conns", d.Source.Postgres.MinConns)
	v.SetDefault("source.postgres.max_conn_lifetime", d.Source.Postgres.MaxConnLifetime)
	v.SetDefault("source.postgres.max_conn_idle_time", d.Source.Postgres.MaxConnIdleTime)
	v.SetDefault("source.file.path", d.Source.File.Path)
	v.SetDefault("source.file.encoding", d.Source.File.Encoding)
	v.SetDefault("source.file.sheet", d.Source.File.Sheet)
	v.SetDefault("source.prune_interval", d.Source.PruneInterval)

	v.SetDefault("discounts.cache_ttl", d.Discounts.CacheTTL)
	v.SetDefault("discounts.stale_ttl", d.Discounts.StaleTTL)
	v.SetDefault("discounts.request_timeout", d.Discounts.RequestTimeout)
	v.SetDefault("discounts.default_radius_km", d.Discounts.DefaultRadiusKm)
	v.SetDefault("discounts.minutes_per_km", d.Discounts.MinutesPerKm)
	v.SetDefault("discounts.retry.requests_per_second", d.Discounts.Retry.RequestsPerSecond)
	v.SetDefault("discounts.retry.max_attempts", d.Discounts.Retry.MaxAttempts)
	v.SetDefault("discounts.retry.initial_backoff", d.Discounts.Retry.InitialBackoff)
	v.SetDefault("discounts.retry.max_backoff", d.Discounts.Retry.MaxBackoff)
	v.SetDefault("discounts.circuit_breaker.max_failures", d.Discounts.CircuitBreaker.MaxFailures)
	v.SetDefault("discounts.circuit_breaker.reset_timeout", d.Discounts.CircuitBreaker.ResetTimeout)
	v.SetDefault("discounts.circuit_breaker.half_open_max_calls", d.Discounts.CircuitBreaker.HalfOpenMaxCalls)

	v.SetDefault("matching.threshold", d.Matching.Threshold)
	v.SetDefault("matching.max_matches", d.Matching.MaxMatches)

	v.SetDefault("optimizer.consolidation_bonus", d.Optimizer.ConsolidationBonus)
	v.SetDefault("optimizer.default_weights.savings", d.Optimizer.DefaultWeights.Savings)
	v.SetDefault("optimizer.default_weights.time", d.Optimizer.DefaultWeights.Time)
	v.SetDefault("optimizer.default_weights.quality", d.Optimizer.DefaultWeights.Quality)
	v.SetDefault("optimizer.organic_score", d.Optimizer.OrganicScore)
	v.SetDefault("optimizer.conventional_score", d.Optimizer.ConventionalScore)

	v.SetDefault("savings.per_store_overhead_minutes", d.Savings.PerStoreOverheadMinutes)
	v.SetDefault("savings.minutes_per_km", d.Savings.MinutesPerKm)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.service_version", d.Telemetry.ServiceVersion)
	v.SetDefault("telemetry.environment", d.Telemetry.Environment)
	v.SetDefault("telemetry.sample_ratio", d.Telemetry.SampleRatio)
}
