// Package config provides configuration management for the Wrale Search server
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by the server
const EnvPrefix = "WSEARCH_"

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DB_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REDIS_"`
	Upstream  UpstreamConfig  `yaml:"upstream" envPrefix:"UPSTREAM_"`
	Content   ContentConfig   `yaml:"content" envPrefix:"CONTENT_"`
	Sync      SyncConfig      `yaml:"sync" envPrefix:"SYNC_"`
	Detection DetectionConfig `yaml:"detection" envPrefix:"DETECTION_"`
	Retention RetentionConfig `yaml:"retention" envPrefix:"RETENTION_"`
	Cache     CacheConfig     `yaml:"cache" envPrefix:"CACHE_"`
	RateLimit RateLimitConfig `yaml:"rateLimit" envPrefix:"RATELIMIT_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"readTimeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
	TLSCert         string        `yaml:"tlsCert" env:"TLS_CERT"`
	TLSKey          string        `yaml:"tlsKey" env:"TLS_KEY"`
	// APIToken, when set, is required as a bearer token on the insights API
	APIToken string `yaml:"apiToken" env:"API_TOKEN"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	Name            string        `yaml:"name" env:"NAME"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	SSLMode         string        `yaml:"sslmode" env:"SSLMODE"`
	MaxOpenConns    int           `yaml:"maxOpenConns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"maxIdleConns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" env:"CONN_MAX_LIFETIME"`
	ConnectRetries  int           `yaml:"connectRetries" env:"CONNECT_RETRIES"`
	RetryDelay      time.Duration `yaml:"retryDelay" env:"RETRY_DELAY"`
}

// ConnString builds a lib/pq connection string
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// RedisConfig holds the optional Redis connection. An empty address keeps
// the run lock and read cache in process.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// Enabled reports whether a Redis server is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// UpstreamConfig holds the search analytics API settings
type UpstreamConfig struct {
	Site     string        `yaml:"site" env:"SITE"`
	BaseURL  string        `yaml:"baseURL" env:"BASE_URL"`
	Token    string        `yaml:"token" env:"TOKEN"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
	PageSize int           `yaml:"pageSize" env:"PAGE_SIZE"`
	MaxRows  int           `yaml:"maxRows" env:"MAX_ROWS"`
}

// ContentConfig points at the CMS lookup used to resolve page URLs
type ContentConfig struct {
	ResolverURL string        `yaml:"resolverURL" env:"RESOLVER_URL"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// SyncConfig holds scheduled import settings
type SyncConfig struct {
	// Interval between scheduled runs; zero disables the scheduler
	Interval     time.Duration `yaml:"interval" env:"INTERVAL"`
	LookbackDays int           `yaml:"lookbackDays" env:"LOOKBACK_DAYS"`
	RunOnStart   bool          `yaml:"runOnStart" env:"RUN_ON_START"`
	LockTTL      time.Duration `yaml:"lockTTL" env:"LOCK_TTL"`
}

// DetectionConfig tunes the opportunity classifiers
type DetectionConfig struct {
	WindowDays  int  `yaml:"windowDays" env:"WINDOW_DAYS"`
	RecentDays  int  `yaml:"recentDays" env:"RECENT_DAYS"`
	MaxPerType  int  `yaml:"maxPerType" env:"MAX_PER_TYPE"`
	RetireStale bool `yaml:"retireStale" env:"RETIRE_STALE"`
	// CTRCurve overrides the benchmark CTR per rank (1-10)
	CTRCurve map[int]float64 `yaml:"ctrCurve"`
}

// RetentionConfig holds the metric retention horizon
type RetentionConfig struct {
	HorizonDays int `yaml:"horizonDays" env:"HORIZON_DAYS"`
}

// CacheConfig holds read cache settings
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// RateLimitConfig holds per-client request limits; zero disables a limit
type RateLimitConfig struct {
	APIRequestsPerMinute int `yaml:"apiRequestsPerMinute" env:"API_PER_MINUTE"`
	SyncTriggersPerHour  int `yaml:"syncTriggersPerHour" env:"SYNC_PER_HOUR"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			// POST /sync responds only once the run finishes
			WriteTimeout:    15 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "wrale_search",
			User:            "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectRetries:  5,
			RetryDelay:      time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL:  "https://www.googleapis.com",
			Timeout:  30 * time.Second,
			PageSize: 1000,
			MaxRows:  5000,
		},
		Content: ContentConfig{
			Timeout: 5 * time.Second,
		},
		Sync: SyncConfig{
			Interval:     24 * time.Hour,
			LookbackDays: 28,
			LockTTL:      30 * time.Minute,
		},
		Detection: DetectionConfig{
			WindowDays:  28,
			RecentDays:  7,
			MaxPerType:  50,
			RetireStale: true,
		},
		Retention: RetentionConfig{
			HorizonDays: 180,
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			APIRequestsPerMinute: 120,
			SyncTriggersPerHour:  6,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds configuration from defaults and environment variables only
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.overlayEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

// overlayEnv overlays WSEARCH_* environment variables on top of the current values
func (c *Config) overlayEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
