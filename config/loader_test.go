package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 300*time.Millisecond, cfg.Engine.StepDelay)
	assert.Equal(t, 30*time.Second, cfg.Target.Timeout)
	assert.True(t, cfg.Target.Headless)
	assert.Equal(t, StoreFile, cfg.RunLog.Store)
	assert.Equal(t, "runlogs", cfg.RunLog.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "pageflow", cfg.MetricsNamespace)
	assert.InDelta(t, 0.5, cfg.Ranker.Base, 1e-9)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageflow.yaml")
	data := `
engine:
  strict: true
target:
  headless: false
  viewport_width: 1280
runlog:
  store: sqlite
  sqlite_path: runs.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.True(t, cfg.Engine.Strict)
	// Values the file does not mention keep their defaults.
	assert.Equal(t, 300*time.Millisecond, cfg.Engine.StepDelay)
	assert.False(t, cfg.Target.Headless)
	assert.Equal(t, 1280, cfg.Target.ViewportWidth)
	assert.Equal(t, 1080, cfg.Target.ViewportHeight)
	assert.Equal(t, StoreGorm, cfg.RunLog.Store)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		Load()
	require.NoError(t, err)
	assert.Equal(t, StoreFile, cfg.RunLog.Store)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	t.Setenv("PAGEFLOW_LOG_LEVEL", "warn")
	t.Setenv("PAGEFLOW_ENGINE_STRICT", "true")
	t.Setenv("PAGEFLOW_ENGINE_STEP_DELAY", "25ms")
	t.Setenv("PAGEFLOW_TARGET_VIEWPORT_WIDTH", "800")
	t.Setenv("PAGEFLOW_RUNLOG_REDIS_ADDR", "redis.internal:6379")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Engine.Strict)
	assert.Equal(t, 25*time.Millisecond, cfg.Engine.StepDelay)
	assert.Equal(t, 800, cfg.Target.ViewportWidth)
	assert.Equal(t, "redis.internal:6379", cfg.RunLog.Redis.Addr)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("ACME_LOG_LEVEL", "error")
	cfg, err := NewLoader().WithEnvPrefix("ACME").Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("PAGEFLOW_TARGET_VIEWPORT_WIDTH", "wide")
	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAGEFLOW_TARGET_VIEWPORT_WIDTH")
}

func TestLoader_ValidatorHook(t *testing.T) {
	called := false
	_, err := NewLoader().
		WithValidator(func(cfg *Config) error {
			called = true
			return nil
		}).
		Load()
	require.NoError(t, err)
	assert.True(t, called)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("unknown store", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RunLog.Store = "mongodb"
		assert.Error(t, cfg.Validate())
	})

	t.Run("file store requires directory", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RunLog.Dir = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("sqlite store requires path", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RunLog.Store = StoreGorm
		assert.Error(t, cfg.Validate())
	})

	t.Run("viewport must be positive", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Target.ViewportWidth = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})
}

func TestConfig_OpenStore(t *testing.T) {
	t.Run("none returns nil", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RunLog.Store = StoreNone
		store, err := cfg.OpenStore()
		require.NoError(t, err)
		assert.Nil(t, store)
	})

	t.Run("file store", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RunLog.Dir = t.TempDir()
		store, err := cfg.OpenStore()
		require.NoError(t, err)
		require.NotNil(t, store)
		defer store.Close()
	})

	t.Run("sqlite store", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RunLog.Store = StoreGorm
		cfg.RunLog.SQLitePath = filepath.Join(t.TempDir(), "runs.db")
		store, err := cfg.OpenStore()
		require.NoError(t, err)
		require.NotNil(t, store)
		defer store.Close()
	})
}
