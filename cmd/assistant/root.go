package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jnickzlim/wa-chrome-assistance/internal/config"
	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Reply assistant for browser-based messaging clients",
	Long: `assistant drafts replies for a messaging client open in the browser.
It follows guided flows, reacts to the customer's replies and never sends
anything on its own: every draft waits in the compose box for the operator.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("store") {
			loaded.Store.Type, _ = cmd.Flags().GetString("store")
		}
		if cmd.Flags().Changed("store-path") {
			loaded.Store.Path, _ = cmd.Flags().GetString("store-path")
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		if err := loaded.Validate(); err != nil {
			return err
		}

		level, err := logging.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("store", "", "Library backend: memory, file, sqlite or redis")
	rootCmd.PersistentFlags().String("store-path", "", "Directory (file) or database path (sqlite) of the library")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}
