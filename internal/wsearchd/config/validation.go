package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/wrale/wrale-search/internal/wsearchd/benchmark"
)

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if (c.Server.TLSCert != "") != (c.Server.TLSKey != "") {
		return fmt.Errorf("both TLS cert and key must be provided")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("invalid max open connections: %d", c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns < 1 {
		return fmt.Errorf("invalid max idle connections: %d", c.Database.MaxIdleConns)
	}
	if c.Upstream.Site == "" {
		return fmt.Errorf("upstream site is required")
	}
	if c.Upstream.Token == "" {
		return fmt.Errorf("upstream token is required")
	}
	if err := validateURL(c.Upstream.BaseURL); err != nil {
		return fmt.Errorf("invalid upstream base URL: %w", err)
	}
	if c.Upstream.PageSize < 1 || c.Upstream.MaxRows < 1 {
		return fmt.Errorf("upstream page size and max rows must be positive")
	}
	if c.Content.ResolverURL != "" {
		if err := validateURL(c.Content.ResolverURL); err != nil {
			return fmt.Errorf("invalid content resolver URL: %w", err)
		}
	}
	if c.Sync.Interval != 0 && c.Sync.Interval < time.Minute {
		return fmt.Errorf("sync interval must be at least 1 minute")
	}
	if c.Sync.LookbackDays < 1 {
		return fmt.Errorf("sync lookback days must be positive")
	}
	if c.Sync.LockTTL < time.Minute {
		return fmt.Errorf("sync lock TTL must be at least 1 minute")
	}
	if c.Detection.WindowDays < 2 {
		return fmt.Errorf("detection window must be at least 2 days")
	}
	if c.Detection.RecentDays < 1 || c.Detection.RecentDays >= c.Detection.WindowDays {
		return fmt.Errorf("detection recent days must be between 1 and %d", c.Detection.WindowDays-1)
	}
	if c.Detection.MaxPerType < 1 {
		return fmt.Errorf("detection max per type must be positive")
	}
	if len(c.Detection.CTRCurve) > 0 {
		if err := benchmark.Curve(c.Detection.CTRCurve).Validate(); err != nil {
			return err
		}
	}
	if c.Retention.HorizonDays < 1 {
		return fmt.Errorf("retention horizon must be positive")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}
	if c.RateLimit.APIRequestsPerMinute < 0 || c.RateLimit.SyncTriggersPerHour < 0 {
		return fmt.Errorf("rate limits cannot be negative")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", l.Level)
	}
	return level, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
