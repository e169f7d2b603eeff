package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enri312/forge/internal/config"
	"github.com/enri312/forge/internal/fingerprint"
)

func withIsolatedHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	t.Setenv("HOME", dir)
	return dir
}

func TestEngine_BuildCacheStore_LocalOnly(t *testing.T) {
	dir := withIsolatedHome(t)

	e := &engine{cfg: &config.Config{
		Cache: config.CacheConfig{Enabled: true, LocalRoot: dir + "/.forge/cache"},
	}}

	store, closeStore, err := e.buildCacheStore()
	require.NoError(t, err)
	assert.Nil(t, closeStore)
	require.NotNil(t, store)

	f := fingerprint.Fingerprint{}
	result, err := store.Lookup(f)
	require.NoError(t, err)
	assert.False(t, result.Hit)
}

func TestEngine_BuildCacheStore_Disabled(t *testing.T) {
	withIsolatedHome(t)

	e := &engine{cfg: &config.Config{Cache: config.CacheConfig{Enabled: false}}}

	store, closeStore, err := e.buildCacheStore()
	require.NoError(t, err)
	assert.Nil(t, closeStore)
	require.NotNil(t, store)

	f := fingerprint.Fingerprint{}
	result, err := store.Lookup(f)
	require.NoError(t, err)
	assert.False(t, result.Hit)
}
