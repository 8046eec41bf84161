package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BaSui01/pageflow/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.yaml>",
	Short: "Parse and lint a workflow file without executing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := workflow.ParseFile(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "workflow %q: %d steps, %d variables\n",
			wf.Name, len(wf.Steps), len(wf.Variables))

		warnings := workflow.Lint(wf)
		if len(warnings) == 0 {
			fmt.Fprintln(out, "no issues found")
			return nil
		}
		for _, w := range warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		return fmt.Errorf("%d lint warning(s)", len(warnings))
	},
}
