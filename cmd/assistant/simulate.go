package main

import (
	"os"

	"github.com/jnickzlim/wa-chrome-assistance/internal/cli"
	"github.com/jnickzlim/wa-chrome-assistance/internal/config"
	"github.com/jnickzlim/wa-chrome-assistance/internal/presentation/tui"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/assist"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/runner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [file]",
	Short: "Rehearse a flow in the terminal",
	Long: `Plays one conversation in the terminal: lines you type are the
customer's messages, drafts are printed where the compose box would be.
Flows come from the given file or from the configured library.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flowID, _ := cmd.Flags().GetString("flow")
		name, _ := cmd.Flags().GetString("name")

		flows, err := loadFlows(ctx, args)
		if err != nil {
			return err
		}
		flow, err := pickFlow(flows, flowID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		var renderer runner.ContentRenderer
		statusStyle := runner.WithStatusStyle(nil)
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			renderer = tui.NewRenderer()
			statusStyle = runner.WithStatusStyle(tui.Status)
			tui.PrintBanner(out, flow.Name)
		}
		host := runner.NewTerminalHost(out, renderer)

		// The rehearsal runs against a scratch library holding the loaded flows.
		scratch := cfg
		scratch.Store = config.StoreConfig{Type: config.StoreMemory}
		app, err := cli.NewApp(ctx, scratch, cli.AppOptions{Host: host, Logger: logger, NoBridges: true})
		if err != nil {
			return err
		}
		defer app.Close()
		if err := app.Library.SaveFlows(ctx, flows); err != nil {
			return err
		}

		loop := assist.NewLoop(host, app.Controller, assist.WithEnabled(true), assist.WithLogger(logger))
		sim := runner.New(app.Controller, loop, host,
			runner.WithConversation(name),
			runner.WithIO(cmd.InOrStdin(), out),
			statusStyle,
			runner.WithLogger(logger),
		)
		return sim.Run(ctx, flow.ID)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("flow", "", "Flow id (required when the source holds several flows)")
	simulateCmd.Flags().String("name", runner.DefaultConversation, "Customer name, also used as the chat title")
}
