package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jnickzlim/wa-chrome-assistance/internal/cli"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/library"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export templates, rules and flows as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		lib, closer, err := openLibrary(ctx)
		if err != nil {
			return err
		}
		defer closer.Close()

		doc, err := lib.Export(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace library collections with the ones in an export file",
	Long: `Reads an export document and overwrites every collection it contains.
Flows are validated first: one invalid flow rejects the whole import.
Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		lib, closer, err := openLibrary(ctx)
		if err != nil {
			return err
		}
		defer closer.Close()

		if err := lib.Import(ctx, data); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Library imported ✅")
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default templates, rules, flows and settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("reset overwrites the whole library, pass --yes to confirm")
		}
		ctx := cmd.Context()
		lib, closer, err := openLibrary(ctx)
		if err != nil {
			return err
		}
		defer closer.Close()

		if err := lib.ResetToDefaults(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Library reset to defaults ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, resetCmd)
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
	exportCmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")
}

// openLibrary opens the configured library and seeds it on first use.
func openLibrary(ctx context.Context) (*library.Library, io.Closer, error) {
	kv, closer, err := cli.OpenKV(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	lib := library.New(kv, library.WithLogger(logger))
	if err := lib.Init(ctx); err != nil {
		closer.Close()
		return nil, nil, err
	}
	return lib, closer, nil
}
