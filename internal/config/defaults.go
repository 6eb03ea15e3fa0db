package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	// DefaultShardSize matches the original batch size used for descriptor
	// pipelines; large enough to amortise file overhead, small enough to fit
	// a shard comfortably in memory.
	DefaultShardSize = 1000

	// DefaultShardFlavor is the serialized-object output format.
	DefaultShardFlavor = "gob.gz"

	DefaultScoringTimeout = 60 * time.Second

	DefaultStorageEndpoint = "localhost:9000"

	DefaultCacheAddr      = "localhost:6379"
	DefaultCacheKeyPrefix = "chemprep:"
	DefaultCacheTTL       = 24 * time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the repository
// default.  Fields already set by the caller are left unchanged so explicit
// configuration always wins.  It must be called after unmarshalling and
// before Validate() so that optional-but-defaulted fields are never seen as
// missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Shard ─────────────────────────────────────────────────────────────────
	if cfg.Shard.Size == 0 {
		cfg.Shard.Size = DefaultShardSize
	}
	if cfg.Shard.Flavor == "" {
		cfg.Shard.Flavor = DefaultShardFlavor
	}

	// ── Scoring ───────────────────────────────────────────────────────────────
	if cfg.Scoring.Timeout == 0 {
		cfg.Scoring.Timeout = DefaultScoringTimeout
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	if cfg.Storage.Endpoint == "" {
		cfg.Storage.Endpoint = DefaultStorageEndpoint
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = DefaultCacheAddr
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = DefaultCacheTTL
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
