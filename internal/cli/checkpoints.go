package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
	"github.com/tailored-agentic-units/flowgraph/pipeline"
)

// StoreOptions selects the checkpoint store, overriding the config file.
type StoreOptions struct {
	Store string
	Path  string
}

func (o *StoreOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Store, "store", "", "checkpoint store (memory|file|sqlite)")
	cmd.Flags().StringVar(&o.Path, "checkpoint-path", "", "location of the file or sqlite store")
}

// apply overrides the store and makes sure checkpointing is enabled so the
// pipeline opens it.
func (o *StoreOptions) apply(cfg *pipeline.Config) {
	if o.Store != "" {
		cfg.Graph.Checkpoint.Store = o.Store
	}
	if o.Path != "" {
		cfg.Graph.Checkpoint.Path = o.Path
	}
	if !cfg.Graph.Checkpoint.Enabled() {
		cfg.Graph.Checkpoint.Interval = 1
	}
}

// CheckpointsOptions holds flags for the checkpoints commands.
type CheckpointsOptions struct {
	*RootOptions
	StoreOptions
}

// NewCheckpointsCommand creates the checkpoints command group.
func NewCheckpointsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckpointsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Inspect and delete stored checkpoints",
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List stored checkpoints",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCheckpoints(cmd, opts)
		},
	}
	opts.register(list)

	del := &cobra.Command{
		Use:           "delete <run-id>...",
		Short:         "Delete checkpoints by run id",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteCheckpoints(cmd, opts, args)
		},
	}
	opts.register(del)

	cmd.AddCommand(list, del)
	return cmd
}

func listCheckpoints(cmd *cobra.Command, opts *CheckpointsOptions) error {
	p, _, err := opts.newPipeline(cmd, opts.apply)
	if err != nil {
		return err
	}
	defer p.Close(context.WithoutCancel(cmd.Context()))

	checkpoints, err := p.Checkpoints(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list checkpoints", err)
	}

	if opts.Format == "json" {
		if checkpoints == nil {
			checkpoints = []graph.Checkpoint{}
		}
		return writeJSON(cmd.OutOrStdout(), checkpoints)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tGRAPH\tNODE\tSTEP\tSAVED")
	for _, cp := range checkpoints {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			cp.RunID, cp.Graph, cp.Node, cp.Step, cp.Timestamp.Format(time.RFC3339))
	}
	return tw.Flush()
}

func deleteCheckpoints(cmd *cobra.Command, opts *CheckpointsOptions, runIDs []string) error {
	p, logger, err := opts.newPipeline(cmd, opts.apply)
	if err != nil {
		return err
	}
	defer p.Close(context.WithoutCancel(cmd.Context()))

	var errs []error
	for _, id := range runIDs {
		if err := p.DeleteCheckpoint(cmd.Context(), id); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		logger.Debug("checkpoint deleted", "run_id", id)
	}
	if len(errs) > 0 {
		return WrapExitError(ExitFailure, "failed to delete checkpoints", errors.Join(errs...))
	}
	return nil
}
