// Package logging builds the process zap logger from configuration.
// This package is internal and should not be imported by external projects.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level" env:"LEVEL"`
	// Format is "json" or "console".
	Format string `yaml:"format" json:"format" env:"FORMAT"`
	// OutputPaths defaults to stderr.
	OutputPaths []string `yaml:"output_paths,omitempty" json:"output_paths,omitempty" env:"OUTPUT_PATHS"`
}

// DefaultConfig returns console logging at info level.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console"}
}

// New builds a zap logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "console" {
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zapCfg.OutputPaths = cfg.OutputPaths
	if len(zapCfg.OutputPaths) == 0 {
		zapCfg.OutputPaths = []string{"stderr"}
	}

	return zapCfg.Build()
}
