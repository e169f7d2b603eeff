// Package config manages FORGE's own engine-level operating
// configuration — worker count, default task timeout, cache
// locations, event bus buffer size — loaded through a layered Viper
// stack the way the teacher's internal/config loads ATLAS's
// ~/.atlas/config.yaml. It is deliberately distinct from
// internal/manifest, which parses per-project forge.toml content:
// this package governs how the engine runs a build, not what one
// project declares.
//
// IMPORTANT: this package may import internal/forgeerrors, but MUST
// NOT import internal/workspace, internal/scheduler, or any other
// internal package that depends on it, to avoid import cycles.
package config

import "time"

// Config is FORGE's root engine configuration.
type Config struct {
	// Build controls scheduler-level knobs: worker count and default
	// per-task timeout.
	Build BuildConfig `yaml:"build" mapstructure:"build"`

	// Cache controls the two-tier content-addressed cache.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// EventBus controls the lifecycle broadcast channel.
	EventBus EventBusConfig `yaml:"event_bus" mapstructure:"event_bus"`

	// Logging controls the engine's zerolog output.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// BuildConfig holds scheduler-level knobs (§4.5).
type BuildConfig struct {
	// Workers bounds how many tasks run concurrently within one
	// execution layer. Default DefaultWorkers.
	Workers int `yaml:"workers" mapstructure:"workers"`

	// DefaultTaskTimeout is used for any task whose manifest declares
	// no explicit per-task timeout.
	DefaultTaskTimeout time.Duration `yaml:"default_task_timeout" mapstructure:"default_task_timeout"`

	// GracePeriod is loaded and validated but not passed to the driver
	// layer: driver.RunCommand always gives a canceled process the
	// fixed driver.GracePeriod before force-killing it (§4.5/§5).
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// CacheConfig holds the two cache tiers' operating settings (§4.4).
type CacheConfig struct {
	// Enabled toggles the cache entirely; disabled means every task
	// always misses and invokes its driver.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// LocalRoot is the local filesystem cache tier's root directory,
	// conventionally ~/.forge/cache.
	LocalRoot string `yaml:"local_root" mapstructure:"local_root"`

	// RemoteEndpoint, if non-empty, enables the optional remote
	// object-store tier (§4.4).
	RemoteEndpoint string `yaml:"remote_endpoint" mapstructure:"remote_endpoint"`

	// RemoteCredentialEnvRef names an environment variable holding
	// the remote tier's credential. Never a literal secret in config.
	RemoteCredentialEnvRef string `yaml:"remote_credential_env_ref" mapstructure:"remote_credential_env_ref"`

	// RemoteTTL is how long a remote entry is retained by the object
	// store; zero or negative uses the remote tier's 30-day default.
	RemoteTTL time.Duration `yaml:"remote_ttl" mapstructure:"remote_ttl"`
}

// EventBusConfig holds the broadcast channel's buffer size (§4.6).
type EventBusConfig struct {
	// BufferSize is the per-subscriber bounded buffer size. <= 0
	// uses eventbus.DefaultBufferSize.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// LoggingConfig holds the engine logger's settings.
type LoggingConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Quiet   bool   `yaml:"quiet" mapstructure:"quiet"`
	LogFile string `yaml:"log_file" mapstructure:"log_file"`
}
