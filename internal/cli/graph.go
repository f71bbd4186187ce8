package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	var mermaid bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the content graph topology",
		Long: `Print the nodes and transitions of the content graph.

Text output is a Mermaid flowchart; --format json prints the topology
document served by GET /v1/graph.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := rootOpts.newPipeline(cmd, nil)
			if err != nil {
				return err
			}
			defer p.Close(context.WithoutCancel(cmd.Context()))

			topology := p.Topology()
			if rootOpts.Format == "json" && !mermaid {
				return writeJSON(cmd.OutOrStdout(), topology)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), topology.Mermaid())
			return err
		},
	}

	cmd.Flags().BoolVar(&mermaid, "mermaid", false, "print Mermaid even with --format json")

	return cmd
}
