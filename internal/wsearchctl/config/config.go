// Package config manages wsearchctl server contexts
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"
)

// EnvConfigPath overrides the default config file location
const EnvConfigPath = "WSEARCHCTL_CONFIG"

// Config holds the CLI configuration
type Config struct {
	// CurrentContext is the name of the active context
	CurrentContext string `mapstructure:"current-context"`
	// Contexts holds the available server contexts
	Contexts map[string]*Context `mapstructure:"contexts"`

	v *viper.Viper
}

// Context represents one wsearchd deployment
type Context struct {
	// Name is the context identifier
	Name string `mapstructure:"name"`
	// Server is the API server URL
	Server string `mapstructure:"server"`
	// Token is the API token
	Token string `mapstructure:"token"`
	// InsecureSkipVerify disables TLS verification
	InsecureSkipVerify bool `mapstructure:"insecure-skip-verify"`
}

// DefaultPath returns the config file path used when none is given
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wsearchctl", "config.yaml")
	}
	return filepath.Join(home, ".wsearchctl", "config.yaml")
}

// Load reads the config file at path, or the default path when empty. A
// missing file yields an empty configuration that Save will create.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("current-context", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		ctx.Name = name
	}
	return cfg, nil
}

// Path returns the file the configuration is saved to
func (c *Config) Path() string {
	return c.v.ConfigFileUsed()
}

// Save writes the configuration back to its file
func (c *Config) Save() error {
	path := c.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	contexts := make(map[string]map[string]interface{}, len(c.Contexts))
	for name, ctx := range c.Contexts {
		contexts[name] = map[string]interface{}{
			"name":                 name,
			"server":               ctx.Server,
			"token":                ctx.Token,
			"insecure-skip-verify": ctx.InsecureSkipVerify,
		}
	}
	// A fresh instance so removed contexts are not merged back from the file
	out := viper.New()
	out.SetConfigType("yaml")
	out.Set("current-context", c.CurrentContext)
	out.Set("contexts", contexts)

	if err := out.WriteConfigAs(path); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return os.Chmod(path, 0o600)
}

// GetCurrentContext returns the active context configuration
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}
	ctx, ok := c.Contexts[c.CurrentContext]
	if !ok {
		return nil, fmt.Errorf("current context %q not found", c.CurrentContext)
	}
	return ctx, nil
}

// AddContext adds or updates a context. The first context becomes current.
func (c *Config) AddContext(name string, ctx *Context) {
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
}

// SetCurrentContext sets the active context
func (c *Config) SetCurrentContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return nil
}

// RemoveContext removes a context, clearing it if it was current
func (c *Config) RemoveContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return nil
}

// ContextNames returns the context names in sorted order
func (c *Config) ContextNames() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
