// Package config loads pageflow configuration from defaults, an optional
// YAML file, and environment-variable overrides, in that priority order.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("pageflow.yaml").
//	    WithEnvPrefix("PAGEFLOW").
//	    Load()
package config

import (
	"fmt"

	"github.com/BaSui01/pageflow/internal/logging"
	"github.com/BaSui01/pageflow/runlog"
	"github.com/BaSui01/pageflow/selector"
	"github.com/BaSui01/pageflow/target"
	"github.com/BaSui01/pageflow/workflow"
)

// Config is the complete pageflow configuration.
type Config struct {
	// Engine holds the workflow engine tunables.
	Engine workflow.Config `yaml:"engine" env:"ENGINE"`

	// Target configures the browser the engine drives.
	Target target.Config `yaml:"target" env:"TARGET"`

	// Ranker holds the selector ranking constants.
	Ranker selector.Weights `yaml:"ranker" env:"RANKER"`

	// RunLog selects and configures the run log store.
	RunLog RunLogConfig `yaml:"runlog" env:"RUNLOG"`

	// Log configures the process logger.
	Log logging.Config `yaml:"log" env:"LOG"`

	// MetricsNamespace prefixes Prometheus metric names.
	MetricsNamespace string `yaml:"metrics_namespace" env:"METRICS_NAMESPACE"`
}

// Run log store kinds.
const (
	StoreNone  = "none"
	StoreFile  = "file"
	StoreRedis = "redis"
	StoreGorm  = "sqlite"
)

// RunLogConfig selects the run log store backend.
type RunLogConfig struct {
	// Store is one of none, file, redis, sqlite.
	Store string `yaml:"store" env:"STORE"`
	// Dir is the file store's base directory.
	Dir string `yaml:"dir" env:"DIR"`
	// SQLitePath is the sqlite store's database file, required for the
	// sqlite store.
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	// Redis configures the redis store.
	Redis runlog.RedisConfig `yaml:"redis" env:"REDIS"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine: workflow.DefaultConfig(),
		Target: target.DefaultConfig(),
		Ranker: selector.DefaultWeights(),
		RunLog: RunLogConfig{
			Store: StoreFile,
			Dir:   "runlogs",
		},
		Log:              logging.DefaultConfig(),
		MetricsNamespace: "pageflow",
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	switch c.RunLog.Store {
	case StoreNone, StoreFile, StoreRedis, StoreGorm:
	default:
		return fmt.Errorf("unknown runlog store %q", c.RunLog.Store)
	}
	if c.RunLog.Store == StoreFile && c.RunLog.Dir == "" {
		return fmt.Errorf("runlog store %q requires a directory", StoreFile)
	}
	if c.RunLog.Store == StoreGorm && c.RunLog.SQLitePath == "" {
		return fmt.Errorf("runlog store %q requires a database path", StoreGorm)
	}
	if c.Target.ViewportWidth <= 0 || c.Target.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d",
			c.Target.ViewportWidth, c.Target.ViewportHeight)
	}
	return nil
}

// OpenStore builds the configured run log store. A "none" store returns nil.
func (c *Config) OpenStore() (runlog.Store, error) {
	switch c.RunLog.Store {
	case StoreNone, "":
		return nil, nil
	case StoreFile:
		return runlog.NewFileStore(c.RunLog.Dir)
	case StoreRedis:
		return runlog.NewRedisStore(c.RunLog.Redis)
	case StoreGorm:
		return runlog.NewGormStore(c.RunLog.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown runlog store %q", c.RunLog.Store)
	}
}
