// Package redis caches computed descriptor vectors keyed by canonical
// SMILES, so repeated featurization runs over overlapping datasets skip the
// recomputation.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ChemPrep/internal/config"
	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// API is the slice of go-redis the cache uses; tests substitute a fake.
type API interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// DescriptorCache stores descriptor vectors in Redis.  Lookup failures and
// corrupt entries degrade to cache misses; only Put surfaces write errors.
type DescriptorCache struct {
	rdb       API
	keyPrefix string
	ttl       time.Duration
	logger    logging.Logger
}

// entry is the stored representation: the descriptor names pin the vector
// layout so a stale entry from an older descriptor set never misreads.
type entry struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// NewDescriptorCache connects to the configured Redis instance and verifies
// it with a ping.
func NewDescriptorCache(cfg config.CacheConfig, log logging.Logger) (*DescriptorCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to connect to redis").WithDetail(cfg.Addr)
	}

	log.Info("descriptor cache connected", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return NewDescriptorCacheWithClient(rdb, cfg.KeyPrefix, cfg.DefaultTTL, log), nil
}

// NewDescriptorCacheWithClient wires a cache around an existing client.
func NewDescriptorCacheWithClient(rdb API, keyPrefix string, ttl time.Duration, log logging.Logger) *DescriptorCache {
	return &DescriptorCache{
		rdb:       rdb,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    log.Named("desccache"),
	}
}

// key derives the cache key from the canonical SMILES and descriptor names.
// Hashing keeps keys bounded regardless of molecule size.
func (c *DescriptorCache) key(smiles string, names []string) string {
	sum := sha256.Sum256([]byte(smiles + "\x00" + strings.Join(names, ",")))
	return c.keyPrefix + "desc:" + hex.EncodeToString(sum[:16])
}

// Get returns the cached vector for the molecule and descriptor set, or
// false on a miss.  Backend errors are logged and reported as misses.
func (c *DescriptorCache) Get(ctx context.Context, smiles string, names []string) ([]float64, bool) {
	raw, err := c.rdb.Get(ctx, c.key(smiles, names)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache lookup failed", logging.Err(err))
		return nil, false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil ||
		len(e.Values) != len(names) || len(e.Names) != len(names) {
		c.logger.Warn("discarding corrupt cache entry", logging.String("smiles", smiles))
		c.rdb.Del(ctx, c.key(smiles, names))
		return nil, false
	}
	for i, n := range e.Names {
		if n != names[i] {
			return nil, false
		}
	}
	return e.Values, true
}

// Put stores the vector for the molecule and descriptor set.
func (c *DescriptorCache) Put(ctx context.Context, smiles string, names []string, values []float64) error {
	raw, err := json.Marshal(entry{Names: names, Values: values})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode cache entry")
	}
	if err := c.rdb.Set(ctx, c.key(smiles, names), raw, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to store cache entry")
	}
	return nil
}

// HealthCheck pings the backend.
func (c *DescriptorCache) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis unreachable")
	}
	return nil
}
