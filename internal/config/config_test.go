package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultShardSize, cfg.Shard.Size)
	assert.Equal(t, "gob.gz", cfg.Shard.Flavor)
	assert.Equal(t, 0, cfg.Shard.StartIndex)
	assert.Equal(t, "chemprep:", cfg.Cache.KeyPrefix)
	assert.Equal(t, 24*time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestApplyDefaults_ExplicitValuesWin(t *testing.T) {
	cfg := &Config{}
	cfg.Shard.Size = 50
	cfg.Log.Level = "debug"
	ApplyDefaults(cfg)

	assert.Equal(t, 50, cfg.Shard.Size)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyDefaults_NilSafe(t *testing.T) {
	ApplyDefaults(nil)
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	t.Run("shard size", func(t *testing.T) {
		c := validConfig()
		c.Shard.Size = 0
		assert.ErrorContains(t, c.Validate(), "shard.size")
	})

	t.Run("negative start index", func(t *testing.T) {
		c := validConfig()
		c.Shard.StartIndex = -1
		assert.ErrorContains(t, c.Validate(), "shard.start_index")
	})

	t.Run("storage enabled without bucket", func(t *testing.T) {
		c := validConfig()
		c.Storage.Enabled = true
		assert.ErrorContains(t, c.Validate(), "storage.bucket")
	})

	t.Run("bad log level", func(t *testing.T) {
		c := validConfig()
		c.Log.Level = "loud"
		assert.ErrorContains(t, c.Validate(), "log.level")
	})
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chemprep.yaml")
	content := []byte(`
shard:
  size: 2
  flavor: sdf.gz
  write: false
smiles_map:
  prefix: CID
  allow_duplicates: true
cache:
  enabled: false
log:
  level: debug
  format: console
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Shard.Size)
	assert.Equal(t, "sdf.gz", cfg.Shard.Flavor)
	assert.False(t, cfg.Shard.Write)
	assert.Equal(t, "CID", cfg.SmilesMap.Prefix)
	assert.True(t, cfg.SmilesMap.AllowDuplicates)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHEMPREP_SHARD_SIZE", "7")
	t.Setenv("CHEMPREP_SMILES_MAP_PREFIX", "ZINC")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Shard.Size)
	assert.Equal(t, "ZINC", cfg.SmilesMap.Prefix)
	// Unset booleans keep their viper defaults.
	assert.True(t, cfg.Shard.Write)
}
