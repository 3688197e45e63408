package main

import (
	"fmt"
	"os"

	"github.com/jnickzlim/wa-chrome-assistance/internal/compiler"
	"github.com/jnickzlim/wa-chrome-assistance/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check flow documents for consistency",
	Long: `Parses a flows document (JSON or YAML, a single flow, a list of flows or
an export) and reports structural errors. Missing start nodes and option
targets fail validation; dead keymap targets and unreachable nodes are
reported as warnings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		flows, err := compiler.NewParser(compiler.WithLogger(logger)).Parse(data)
		if err != nil {
			return err
		}
		if err := validator.ValidateAll(flows); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, f := range flows {
			for _, w := range validator.Lint(f) {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
		}
		fmt.Fprintf(out, "%d flow(s) valid ✅\n", len(flows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
