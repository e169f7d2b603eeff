package config

import (
	"os"
	"path/filepath"
	"strings"

	stderrors "errors"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/enri312/forge/internal/forgeerrors"
)

// EnvPrefix is the environment variable prefix FORGE's own operating
// configuration is read from (e.g. FORGE_BUILD_WORKERS), distinct
// from a manifest's [cache] table, which is per-project forge.toml
// content, not engine config.
const EnvPrefix = "FORGE"

// newViperInstance builds a Viper pre-loaded with built-in defaults,
// FORGE_* environment variable support, and a "." -> "_" key
// replacer so nested keys like build.workers map to FORGE_BUILD_WORKERS.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("build.workers", d.Build.Workers)
	v.SetDefault("build.default_task_timeout", d.Build.DefaultTaskTimeout)
	v.SetDefault("build.grace_period", d.Build.GracePeriod)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.local_root", d.Cache.LocalRoot)
	v.SetDefault("cache.remote_endpoint", d.Cache.RemoteEndpoint)
	v.SetDefault("cache.remote_credential_env_ref", d.Cache.RemoteCredentialEnvRef)
	v.SetDefault("cache.remote_ttl", d.Cache.RemoteTTL)
	v.SetDefault("event_bus.buffer_size", d.EventBus.BufferSize)
}

func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound)
}

// Load reads FORGE's engine configuration with the following
// precedence, highest first: environment variables (FORGE_* prefix),
// project config (.forge/config.yaml), global config
// (~/.forge/config.yaml), built-in defaults. Missing config files at
// either level are not an error.
func Load() (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(v)
}

// LoadWithOverrides loads the layered configuration and then applies
// CLI-flag overrides on top, the engine's highest-precedence layer.
// Only non-zero fields in overrides are applied, so a caller can pass
// a Config built from just the flags the user actually set.
func LoadWithOverrides(overrides *Config) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if overrides != nil {
		applyOverrides(cfg, overrides)
	}
	if err := Validate(cfg); err != nil {
		return nil, forgeerrors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

func applyOverrides(cfg, overrides *Config) {
	if overrides.Build.Workers != 0 {
		cfg.Build.Workers = overrides.Build.Workers
	}
	if overrides.Build.DefaultTaskTimeout != 0 {
		cfg.Build.DefaultTaskTimeout = overrides.Build.DefaultTaskTimeout
	}
	if overrides.Build.GracePeriod != 0 {
		cfg.Build.GracePeriod = overrides.Build.GracePeriod
	}
	if overrides.Cache.LocalRoot != "" {
		cfg.Cache.LocalRoot = overrides.Cache.LocalRoot
	}
	if overrides.Cache.RemoteEndpoint != "" {
		cfg.Cache.RemoteEndpoint = overrides.Cache.RemoteEndpoint
	}
	if overrides.Cache.RemoteCredentialEnvRef != "" {
		cfg.Cache.RemoteCredentialEnvRef = overrides.Cache.RemoteCredentialEnvRef
	}
	if overrides.EventBus.BufferSize != 0 {
		cfg.EventBus.BufferSize = overrides.EventBus.BufferSize
	}
	cfg.Logging.Verbose = cfg.Logging.Verbose || overrides.Logging.Verbose
	cfg.Logging.Quiet = cfg.Logging.Quiet || overrides.Logging.Quiet
	if overrides.Logging.LogFile != "" {
		cfg.Logging.LogFile = overrides.Logging.LogFile
	}
	// cache.enabled has a meaningful false value, so it is not merged
	// here: the CLI's --no-cache flag clears Cache.Enabled on the
	// loaded Config directly.
}

func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, forgeerrors.Wrapf(forgeerrors.ErrConfig, "unmarshal: %v", err)
	}
	if cfg.Cache.LocalRoot == "" {
		root, err := DefaultLocalCacheRoot()
		if err == nil {
			cfg.Cache.LocalRoot = root
		}
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadGlobalConfig(v *viper.Viper) error {
	path, err := GlobalConfigPath()
	if err != nil {
		return nil //nolint:nilerr // home dir unavailable: skip global config silently
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "global config %s: %v", path, err)
	}
	return nil
}

func loadProjectConfig(v *viper.Viper) error {
	path := ProjectConfigPath()
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "project config: %v", err)
	}
	v.SetConfigFile(abs)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "project config %s: %v", abs, err)
	}
	return nil
}

// viperDecoderOption enables mapstructure's duration decode hook so
// YAML/env values like "30s" unmarshal straight into time.Duration
// fields, matching the teacher's own decoder configuration.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
