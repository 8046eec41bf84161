package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/BaSui01/pageflow/digest"
	"github.com/BaSui01/pageflow/internal/metrics"
	"github.com/BaSui01/pageflow/selector"
	"github.com/BaSui01/pageflow/target"
)

var diagnoseFlags struct {
	sel   string
	limit int
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <url>",
	Short: "Inspect a live page and explain what a selector resolves to",
	Long: "Diagnose loads the page, prints its repeated structural patterns, and\n" +
		"when --selector is given reports its match count, per-element unique\n" +
		"selectors, and ranked alternatives if it matches nothing.",
	Args: cobra.ExactArgs(1),
	RunE: runDiagnose,
}

func init() {
	f := diagnoseCmd.Flags()
	f.StringVarP(&diagnoseFlags.sel, "selector", "s", "", "Selector to resolve against the page")
	f.IntVar(&diagnoseFlags.limit, "limit", 5, "Maximum alternatives to suggest")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tgt, err := target.NewChromeDPTarget(cfg.Target, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer tgt.Close()

	if err := tgt.Navigate(ctx, args[0], cfg.Engine.NavigationTimeout); err != nil {
		return fmt.Errorf("load page: %w", err)
	}

	out := cmd.OutOrStdout()
	met := metrics.NewCollector(cfg.MetricsNamespace, prometheus.DefaultRegisterer)

	d, err := digest.NewCollector(tgt, logger, met).Collect(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(out, d.Describe())

	if diagnoseFlags.sel == "" {
		return nil
	}

	res, err := selector.NewDisambiguator(tgt, logger).Resolve(ctx, diagnoseFlags.sel)
	if err != nil {
		return err
	}
	switch {
	case res.Count == 0:
		fmt.Fprintf(out, "selector %q matches nothing\n", res.Selector)
		ranker := selector.NewRanker(tgt, cfg.Ranker, logger, met)
		alts, err := ranker.FindAlternatives(ctx, res.Selector, diagnoseFlags.limit)
		if err != nil {
			return err
		}
		ranked, err := ranker.Rank(ctx, alts)
		if err != nil {
			return err
		}
		for _, r := range ranked {
			fmt.Fprintf(out, "  try %s (%d matches, confidence %.2f)\n", r.Selector, r.Matches, r.Confidence)
		}
	case res.Count == 1:
		fmt.Fprintf(out, "selector %q matches exactly one element\n", res.Selector)
	default:
		fmt.Fprint(out, res.Describe())
	}
	return nil
}
