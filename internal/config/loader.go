// Package config provides configuration loading, defaults, and validation
// for ChemPrep.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all ChemPrep settings.
const envPrefix = "CHEMPREP"

// newViper builds a pre-configured Viper instance with the repository's
// standard settings: YAML file type, CHEMPREP_ env prefix, automatic env
// binding, and a key replacer that maps "." → "_" so that nested keys like
// "cache.addr" resolve to "CHEMPREP_CACHE_ADDR".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Every key must be registered for AutomaticEnv to surface env-only
	// values through Unmarshal.  Boolean defaults must live here regardless:
	// ApplyDefaults cannot distinguish an explicit false from an unset field.
	v.SetDefault("shard.size", 0)
	v.SetDefault("shard.flavor", "")
	v.SetDefault("shard.write", true)
	v.SetDefault("shard.start_index", 0)
	v.SetDefault("smiles_map.prefix", "")
	v.SetDefault("smiles_map.allow_duplicates", false)
	v.SetDefault("scoring.base_url", "")
	v.SetDefault("scoring.timeout", 0)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.key_prefix", "")
	v.SetDefault("cache.default_ttl", 0)
	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "")

	return v
}

// Load reads the YAML file at configPath, merges any CHEMPREP_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.  It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CHEMPREP_* environment variables,
// with no config file required.  This is the loading strategy used when the
// CLI is invoked without --config.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}
