package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/pageflow"
	"github.com/BaSui01/pageflow/config"
	"github.com/BaSui01/pageflow/internal/logging"
	"github.com/BaSui01/pageflow/runlog"
)

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "pageflow",
	Short: "Declarative browser workflow runner",
	Long: "Pageflow executes declarative step workflows against a browser page\n" +
		"and helps diagnose the CSS selectors those workflows reference.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "", "Config file path")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(lintSelectorCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.Version = pageflow.Version
}

// loadConfig resolves configuration and builds the process logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.NewLoader().WithConfigPath(rootFlags.configPath).Load()
	if err != nil {
		return nil, nil, err
	}
	if rootFlags.logLevel != "" {
		cfg.Log.Level = rootFlags.logLevel
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openConfiguredStore opens the run log store without building a logger.
func openConfiguredStore() (runlog.Store, error) {
	cfg, err := config.NewLoader().WithConfigPath(rootFlags.configPath).Load()
	if err != nil {
		return nil, err
	}
	store, err := cfg.OpenStore()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("no run log store configured")
	}
	return store, nil
}
