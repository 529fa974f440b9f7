package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allowTempDir adds a fresh temp dir to the allowed config dirs
func allowTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	orig := DefaultConfigDirs
	DefaultConfigDirs = append([]string{dir}, orig...)
	t.Cleanup(func() { DefaultConfigDirs = orig })
	return dir
}

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := allowTempDir(t)
	path := writeConfig(t, dir, "wsearchd.yaml", `
server:
  port: 9090
database:
  host: db.internal
  password: secret
upstream:
  site: "sc-domain:example.com"
  token: abc
sync:
  interval: 6h
  runOnStart: true
detection:
  retireStale: false
log:
  level: debug
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6*time.Hour, cfg.Sync.Interval)
	assert.True(t, cfg.Sync.RunOnStart)
	assert.False(t, cfg.Detection.RetireStale)

	// untouched sections keep their defaults
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 28, cfg.Sync.LookbackDays)
	assert.Equal(t, 180, cfg.Retention.HorizonDays)
	assert.Equal(t, 5000, cfg.Upstream.MaxRows)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	dir := allowTempDir(t)
	path := writeConfig(t, dir, "wsearchd.yml", `
server:
  port: 9090
upstream:
  site: "sc-domain:example.com"
  token: from-file
`)

	t.Setenv("WSEARCH_SERVER_PORT", "7070")
	t.Setenv("WSEARCH_UPSTREAM_TOKEN", "from-env")
	t.Setenv("WSEARCH_REDIS_ADDR", "redis:6379")
	t.Setenv("WSEARCH_SYNC_LOCK_TTL", "45m")
	t.Setenv("WSEARCH_SERVER_API_TOKEN", "api-secret")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Upstream.Token)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 45*time.Minute, cfg.Sync.LockTTL)
	assert.Equal(t, "api-secret", cfg.Server.APIToken)
}

func TestLoadFile_PathValidation(t *testing.T) {
	dir := allowTempDir(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "wrong extension", path: writeConfig(t, dir, "wsearchd.json", "{}")},
		{name: "outside allowed dirs", path: filepath.Join(os.TempDir(), "elsewhere", "wsearchd.yaml")},
		{name: "missing file", path: filepath.Join(dir, "absent.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_DevModeAllowsWorkingDir(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := writeConfig(t, dir, "dev.yaml", "upstream:\n  site: s\n  token: t\n")

	_, err = LoadFile(path)
	require.Error(t, err)

	t.Setenv("WSEARCH_DEV_MODE", "1")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	_, err = LoadFile(path)
	assert.NoError(t, err)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("WSEARCH_UPSTREAM_SITE", "https://example.com/")
	t.Setenv("WSEARCH_UPSTREAM_TOKEN", "tok")
	t.Setenv("WSEARCH_RETENTION_HORIZON_DAYS", "90")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", cfg.Upstream.Site)
	assert.Equal(t, 90, cfg.Retention.HorizonDays)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("WSEARCH_SERVER_PORT", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Upstream.Site = "https://example.com/"
		cfg.Upstream.Token = "tok"
		return cfg
	}
	require.NoError(t, valid().validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad server port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "tls cert without key", mutate: func(c *Config) { c.Server.TLSCert = "cert.pem" }},
		{name: "bad database port", mutate: func(c *Config) { c.Database.Port = 70000 }},
		{name: "no open conns", mutate: func(c *Config) { c.Database.MaxOpenConns = 0 }},
		{name: "missing site", mutate: func(c *Config) { c.Upstream.Site = "" }},
		{name: "missing token", mutate: func(c *Config) { c.Upstream.Token = "" }},
		{name: "bad base url", mutate: func(c *Config) { c.Upstream.BaseURL = "ftp://x" }},
		{name: "bad resolver url", mutate: func(c *Config) { c.Content.ResolverURL = "cms" }},
		{name: "interval too short", mutate: func(c *Config) { c.Sync.Interval = time.Second }},
		{name: "zero lookback", mutate: func(c *Config) { c.Sync.LookbackDays = 0 }},
		{name: "recent covers window", mutate: func(c *Config) { c.Detection.RecentDays = 28 }},
		{name: "zero horizon", mutate: func(c *Config) { c.Retention.HorizonDays = 0 }},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit.SyncTriggersPerHour = -1 }},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "verbose" }},
		{
			name: "increasing ctr curve",
			mutate: func(c *Config) {
				c.Detection.CTRCurve = map[int]float64{
					1: 0.2, 2: 0.3, 3: 0.1, 4: 0.1, 5: 0.1, 6: 0.1, 7: 0.1, 8: 0.1, 9: 0.1, 10: 0.1,
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}

	t.Run("scheduler disabled", func(t *testing.T) {
		cfg := valid()
		cfg.Sync.Interval = 0
		assert.NoError(t, cfg.validate())
	})
}

func TestDatabaseConfig_ConnString(t *testing.T) {
	d := Default().Database
	d.Password = "pw"
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=wrale_search sslmode=disable",
		d.ConnString())
}

func TestDefault_WriteTimeoutOutlastsCLI(t *testing.T) {
	// wsearchctl waits up to ten minutes for a manual sync; the server must
	// not drop the connection before it answers
	assert.Greater(t, Default().Server.WriteTimeout, 10*time.Minute)
}
