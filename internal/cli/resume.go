package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	*RootOptions
	StoreOptions
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Continue a checkpointed run",
		Long: `Continue a run from its last checkpoint and print the result.

The run resumes at the node after the checkpoint with the saved state,
step count and path. Runs whose checkpoint was taken before End are
already complete and cannot be resumed.

Example:
  flowgraph resume 0192f3c4-... --store sqlite --checkpoint-path ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd, opts, args[0])
		},
	}
	opts.register(cmd)

	return cmd
}

func runResume(cmd *cobra.Command, opts *ResumeOptions, runID string) error {
	p, _, err := opts.newPipeline(cmd, opts.apply)
	if err != nil {
		return err
	}
	defer p.Close(context.WithoutCancel(cmd.Context()))

	res, err := p.Resume(cmd.Context(), runID)
	if res == nil {
		switch {
		case errors.Is(err, graph.ErrCheckpointNotFound), errors.Is(err, graph.ErrRunComplete):
			return WrapExitError(ExitFailure, "cannot resume run", err)
		default:
			return WrapExitError(ExitCommandError, "cannot resume run", err)
		}
	}
	return reportRun(cmd, opts.RootOptions, res, err)
}
