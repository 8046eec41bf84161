package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BaSui01/pageflow/selector"
)

var lintSelectorCmd = &cobra.Command{
	Use:   "lint-selector <selector>",
	Short: "Normalize a CSS selector and report likely problems",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]
		out := cmd.OutOrStdout()

		norm := selector.Normalize(raw)
		if norm != raw {
			fmt.Fprintf(out, "normalized: %s\n", norm)
		}
		if !selector.IsValid(norm) {
			fmt.Fprintln(out, "structurally invalid")
		}
		for _, s := range selector.SuggestFixes(raw, "") {
			fmt.Fprintf(out, "suggestion: %s\n", s)
		}
		if selector.IsValid(norm) {
			fmt.Fprintln(out, "ok")
			return nil
		}
		return fmt.Errorf("selector %q is invalid", raw)
	},
}
