package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/pageflow/config"
	"github.com/BaSui01/pageflow/internal/metrics"
	"github.com/BaSui01/pageflow/runlog"
	"github.com/BaSui01/pageflow/target"
	"github.com/BaSui01/pageflow/workflow"
)

var runFlags struct {
	vars     []string
	strict   bool
	headless bool
	noSave   bool
}

var runCmd = &cobra.Command{
	Use:   "run <workflow.yaml>",
	Short: "Execute a workflow file against a live browser",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflow,
}

func init() {
	f := runCmd.Flags()
	f.StringArrayVar(&runFlags.vars, "var", nil, "Workflow variable as key=value (repeatable)")
	f.BoolVar(&runFlags.strict, "strict", false, "Abort the run on the first failed step")
	f.BoolVar(&runFlags.headless, "headless", true, "Run the browser without a visible window")
	f.BoolVar(&runFlags.noSave, "no-save", false, "Skip persisting the run log")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	wf, err := workflow.ParseFile(args[0])
	if err != nil {
		return err
	}

	overrides, err := parseVarFlags(runFlags.vars)
	if err != nil {
		return err
	}
	for k, v := range overrides {
		if wf.Variables == nil {
			wf.Variables = map[string]string{}
		}
		wf.Variables[k] = v
	}

	cfg.Engine.Strict = cfg.Engine.Strict || runFlags.strict
	cfg.Target.Headless = runFlags.headless

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tgt, err := target.NewChromeDPTarget(cfg.Target, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer tgt.Close()

	met := metrics.NewCollector(cfg.MetricsNamespace, prometheus.DefaultRegisterer)
	eng := workflow.New(tgt, cfg.Engine, logger,
		workflow.WithPrompter(stdinPrompter(cmd)),
		workflow.WithMetrics(met),
	)

	res, execErr := eng.ExecuteWorkflow(ctx, wf)
	if res != nil {
		met.RunFinished(res.Success)
	}
	if execErr != nil && !errors.Is(execErr, workflow.ErrStrictAbort) {
		return execErr
	}

	log := runlog.FromResult(res)
	fmt.Fprintln(cmd.OutOrStdout(), log.DisplayString())

	if !runFlags.noSave {
		if err := saveRunLog(ctx, cfg, logger, log); err != nil {
			return err
		}
	}

	if execErr != nil {
		return execErr
	}
	if log.FailedSteps > 0 {
		return fmt.Errorf("%d of %d steps failed", log.FailedSteps, log.TotalSteps)
	}
	return nil
}

// saveRunLog persists log to the configured store. A "none" store means there
// is nothing to save. A store that opens but rejects the save is logged and
// tolerated so the run's exit code reflects the workflow, not the store.
func saveRunLog(ctx context.Context, cfg *config.Config, logger *zap.Logger, log *runlog.RunLog) error {
	store, err := cfg.OpenStore()
	if err != nil {
		return fmt.Errorf("open run log store: %w", err)
	}
	if store == nil {
		return nil
	}
	defer store.Close()
	if err := store.Save(ctx, log); err != nil {
		logger.Warn("run log not saved", zap.Error(err))
	}
	return nil
}

func parseVarFlags(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q, expected key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

// stdinPrompter blocks the run until the operator presses enter.
func stdinPrompter(cmd *cobra.Command) workflow.Prompter {
	return func(ctx context.Context, message string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\nPress enter to continue...", message)
		done := make(chan struct{})
		go func() {
			buf := make([]byte, 1)
			for {
				n, err := os.Stdin.Read(buf)
				if err != nil || (n > 0 && buf[0] == '\n') {
					break
				}
			}
			close(done)
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		}
	}
}
