package config

import "time"

// DefaultWorkers mirrors internal/scheduler.DefaultWorkers; config
// does not import internal/scheduler (to keep it a leaf package), so
// the default is restated here and the two are kept in sync by the
// same spec.md §4.5 requirement ("N defaults to physical CPU count").
// FORGE uses a fixed default rather than runtime.NumCPU() so a build
// run is reproducible across hosts with different core counts unless
// the operator explicitly overrides Workers.
const DefaultWorkers = 4

// DefaultTaskTimeout mirrors internal/scheduler.DefaultTaskTimeout.
const DefaultTaskTimeout = 10 * time.Minute

// DefaultGracePeriod mirrors internal/driver.GracePeriod.
const DefaultGracePeriod = 5 * time.Second

// DefaultLocalCacheDir is the conventional local cache root named in
// §4.4, relative to the user's home directory.
const DefaultLocalCacheDir = ".forge/cache"

// DefaultEventBusBufferSize mirrors internal/eventbus.DefaultBufferSize.
const DefaultEventBusBufferSize = 1024

// DefaultConfig returns a Config with sensible defaults, used as the
// base layer Load merges environment and config-file values over.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			Workers:            DefaultWorkers,
			DefaultTaskTimeout: DefaultTaskTimeout,
			GracePeriod:        DefaultGracePeriod,
		},
		Cache: CacheConfig{
			Enabled:   true,
			LocalRoot: "", // resolved to ~/.forge/cache by Load if empty
		},
		EventBus: EventBusConfig{
			BufferSize: DefaultEventBusBufferSize,
		},
		Logging: LoggingConfig{},
	}
}
