package config

import (
	"os"
	"path/filepath"

	"github.com/enri312/forge/internal/forgeerrors"
)

// GlobalConfigDir returns ~/.forge, the directory FORGE's own
// operating configuration and default local cache tier live under,
// mirroring atlas's ~/.atlas convention.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", forgeerrors.Wrapf(forgeerrors.ErrConfig, "home directory: %v", err)
	}
	return filepath.Join(home, ".forge"), nil
}

// GlobalConfigPath returns ~/.forge/config.yaml.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ProjectConfigDir returns .forge, the per-workspace-root directory a
// project-level config.yaml may live under, relative to the build
// invocation's working directory.
func ProjectConfigDir() string {
	return ".forge"
}

// ProjectConfigPath returns .forge/config.yaml.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), "config.yaml")
}

// DefaultLocalCacheRoot returns ~/.forge/cache, the local cache
// tier's conventional root when CacheConfig.LocalRoot is unset.
func DefaultLocalCacheRoot() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache"), nil
}
