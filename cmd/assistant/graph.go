package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jnickzlim/wa-chrome-assistance/internal/compiler"
	"github.com/jnickzlim/wa-chrome-assistance/internal/presentation/graph"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Export a flow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of one flow, read from a flows
document or, without a file, from the configured library.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flowID, _ := cmd.Flags().GetString("flow")
		current, _ := cmd.Flags().GetString("current")
		visited, _ := cmd.Flags().GetStringSlice("visited")

		flows, err := loadFlows(cmd.Context(), args)
		if err != nil {
			return err
		}
		flow, err := pickFlow(flows, flowID)
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if current != "" || len(visited) > 0 {
			overlay = &graph.GraphOverlay{CurrentNode: current, VisitedNodes: visited}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(flow, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("flow", "", "Flow id (required when the source holds several flows)")
	graphCmd.Flags().String("current", "", "Highlight this node as current")
	graphCmd.Flags().StringSlice("visited", nil, "Highlight these nodes as visited")
}

// loadFlows reads flows from the file in args, or from the library.
func loadFlows(ctx context.Context, args []string) ([]*domain.Flow, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		return compiler.NewParser(compiler.WithLogger(logger)).Parse(data)
	}

	lib, closer, err := openLibrary(ctx)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return lib.Flows(ctx)
}

func pickFlow(flows []*domain.Flow, id string) (*domain.Flow, error) {
	if id == "" {
		if len(flows) == 1 {
			return flows[0], nil
		}
		ids := make([]string, 0, len(flows))
		for _, f := range flows {
			ids = append(ids, f.ID)
		}
		return nil, fmt.Errorf("--flow is required, available: %s", strings.Join(ids, ", "))
	}
	for _, f := range flows {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
}
