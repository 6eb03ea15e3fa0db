// Package config defines all configuration structures for ChemPrep.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/ChemPrep/internal/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ShardConfig holds dataset-sharding tunables.
type ShardConfig struct {
	// Size is the number of molecules per shard; the final shard may be
	// smaller.
	Size int `mapstructure:"size"`

	// Flavor is the output format extension for written shards, e.g.
	// "gob.gz", "sdf", "sdf.gz".
	Flavor string `mapstructure:"flavor"`

	// Write controls whether shards are persisted as they are produced.
	Write bool `mapstructure:"write"`

	// StartIndex is the first shard index used for output filenames.
	StartIndex int `mapstructure:"start_index"`
}

// SmilesMapConfig holds identifier-map policies.
type SmilesMapConfig struct {
	// Prefix is prepended to purely numeric identifiers; when empty, bare
	// numeric identifiers are rejected.
	Prefix string `mapstructure:"prefix"`

	// AllowDuplicates permits the same canonical SMILES under two different
	// identifiers.
	AllowDuplicates bool `mapstructure:"allow_duplicates"`
}

// ScoringConfig holds parameters for the external complex-scoring service.
type ScoringConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds MinIO / S3-compatible object-storage parameters used by
// the optional shard uploader.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// CacheConfig holds Redis connection parameters for the descriptor cache.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for ChemPrep.  Every component
// reads its settings from the relevant sub-struct.
type Config struct {
	Shard     ShardConfig     `mapstructure:"shard"`
	SmilesMap SmilesMapConfig `mapstructure:"smiles_map"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       logging.Config  `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start.
func (c *Config) Validate() error {
	if c.Shard.Size < 1 {
		return fmt.Errorf("config: shard.size must be ≥ 1, got %d", c.Shard.Size)
	}
	if c.Shard.StartIndex < 0 {
		return fmt.Errorf("config: shard.start_index must be ≥ 0, got %d", c.Shard.StartIndex)
	}
	if c.Shard.Flavor == "" {
		return fmt.Errorf("config: shard.flavor is required")
	}

	if c.Storage.Enabled {
		if c.Storage.Endpoint == "" {
			return fmt.Errorf("config: storage.endpoint is required when storage is enabled")
		}
		if c.Storage.Bucket == "" {
			return fmt.Errorf("config: storage.bucket is required when storage is enabled")
		}
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("config: cache.addr is required when cache is enabled")
	}
	if c.Cache.DB < 0 {
		return fmt.Errorf("config: cache.db must be ≥ 0, got %d", c.Cache.DB)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
