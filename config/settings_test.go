package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, "v1", s.SchemaVersion)
	assert.Equal(t, ".gatepipe", s.StateDir)
	assert.Empty(t, s.DirectURL)
	assert.Zero(t, s.MaxValidationRetries)
	assert.False(t, s.Refresh)
}

func TestLoadSettings_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
direct_url: "http://localhost:8080/invoke"
bearer_token: "tok"
schema_version: "v2"
max_validation_retries: 3
disable_cache: true
`), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/invoke", s.DirectURL)
	assert.Equal(t, "tok", s.BearerToken)
	assert.Equal(t, "v2", s.SchemaVersion)
	assert.Equal(t, 3, s.MaxValidationRetries)
	assert.True(t, s.DisableCache)
	assert.Equal(t, ".gatepipe", s.StateDir) // untouched keys keep defaults
}

func TestLoadSettings_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`router_url: "http://file"`), 0o644))

	t.Setenv("GATEPIPE_ROUTER_URL", "http://env")
	t.Setenv("GATEPIPE_REFRESH", "true")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env", s.RouterURL)
	assert.True(t, s.Refresh)
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSettings_InvokeConfig(t *testing.T) {
	s := &Settings{
		DirectURL:            "http://d",
		RouterURL:            "http://r",
		BearerToken:          "b",
		SchemaVersion:        "v3",
		MaxValidationRetries: 2,
		Refresh:              true,
		DisableCache:         true,
	}
	cfg := s.InvokeConfig()
	assert.Equal(t, "http://d", cfg.DirectURL)
	assert.Equal(t, "http://r", cfg.RouterURL)
	assert.Equal(t, "b", cfg.BearerToken)
	assert.Equal(t, "v3", cfg.SchemaVersion)
	assert.Equal(t, 2, cfg.MaxValidationRetries)
	assert.True(t, cfg.Refresh)
	assert.True(t, cfg.DisableCache)
}
