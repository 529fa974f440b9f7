package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.CurrentContext)
	assert.Empty(t, cfg.Contexts)
	assert.Equal(t, path, cfg.Path())

	_, err = cfg.GetCurrentContext()
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wsearchctl", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.AddContext("dev", &Context{Server: "http://localhost:8080"})
	cfg.AddContext("prod", &Context{Server: "https://search.example.com", Token: "tok", InsecureSkipVerify: true})
	assert.Equal(t, "dev", cfg.CurrentContext)
	require.NoError(t, cfg.SetCurrentContext("prod"))
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", reloaded.CurrentContext)
	assert.Equal(t, []string{"dev", "prod"}, reloaded.ContextNames())

	ctx, err := reloaded.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "prod", ctx.Name)
	assert.Equal(t, "https://search.example.com", ctx.Server)
	assert.Equal(t, "tok", ctx.Token)
	assert.True(t, ctx.InsecureSkipVerify)
}

func TestRemoveContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.AddContext("dev", &Context{Server: "http://localhost:8080"})
	cfg.AddContext("prod", &Context{Server: "https://search.example.com"})
	require.NoError(t, cfg.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, reloaded.RemoveContext("dev"))
	assert.Empty(t, reloaded.CurrentContext)
	assert.Error(t, reloaded.RemoveContext("dev"))
	assert.Error(t, reloaded.SetCurrentContext("dev"))
	require.NoError(t, reloaded.Save())

	final, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"prod"}, final.ContextNames())
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", DefaultPath())
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contexts: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
