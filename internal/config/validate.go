package config

import (
	"github.com/enri312/forge/internal/forgeerrors"
)

// Validate checks cfg for invalid or inconsistent values, returning
// the first problem found wrapped in forgeerrors.ErrConfig so CLI
// callers map it to exit code 2 via forgeerrors.ExitCode.
func Validate(cfg *Config) error {
	if cfg == nil {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "config is nil")
	}
	if cfg.Build.Workers < 0 {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "build.workers must be >= 0, got %d", cfg.Build.Workers)
	}
	if cfg.Build.DefaultTaskTimeout < 0 {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "build.default_task_timeout must be >= 0, got %s", cfg.Build.DefaultTaskTimeout)
	}
	if cfg.Build.GracePeriod < 0 {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "build.grace_period must be >= 0, got %s", cfg.Build.GracePeriod)
	}
	if cfg.EventBus.BufferSize < 0 {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "event_bus.buffer_size must be >= 0, got %d", cfg.EventBus.BufferSize)
	}
	return nil
}
