package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	defer func() { _ = os.Chdir(oldWd) }()
	t.Setenv("HOME", tempDir)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultWorkers, cfg.Build.Workers)
	assert.Equal(t, DefaultTaskTimeout, cfg.Build.DefaultTaskTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, DefaultEventBusBufferSize, cfg.EventBus.BufferSize)
}

func TestLoad_ProjectConfigOverridesGlobal(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	defer func() { _ = os.Chdir(oldWd) }()
	t.Setenv("HOME", tempDir)

	require.NoError(t, os.MkdirAll(".forge", 0o750))
	require.NoError(t, os.WriteFile(".forge/config.yaml", []byte("build:\n  workers: 8\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Build.Workers)
}

func TestLoad_EnvironmentOverridesFiles(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	defer func() { _ = os.Chdir(oldWd) }()
	t.Setenv("HOME", tempDir)

	require.NoError(t, os.MkdirAll(".forge", 0o750))
	require.NoError(t, os.WriteFile(".forge/config.yaml", []byte("build:\n  workers: 8\n"), 0o600))
	t.Setenv("FORGE_BUILD_WORKERS", "16")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Build.Workers)
}

func TestLoadWithOverrides_AppliesNonZeroFieldsOnly(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tempDir))
	defer func() { _ = os.Chdir(oldWd) }()
	t.Setenv("HOME", tempDir)

	cfg, err := LoadWithOverrides(&Config{Build: BuildConfig{Workers: 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Build.Workers)
	assert.Equal(t, DefaultTaskTimeout, cfg.Build.DefaultTaskTimeout)
}

func TestValidate_RejectsNegativeWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Build.Workers = -1
	require.Error(t, Validate(cfg))
}
