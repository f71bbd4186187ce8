package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flowgraph/content"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
	"github.com/tailored-agentic-units/flowgraph/pipeline"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	File      string
	RunID     string
	MaxSteps  int
	MaxLength int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [content]",
		Short: "Process one input through the content graph",
		Long: `Process one input through the content graph and print the formatted result.

Content comes from the argument, from --file, or from stdin when neither is
given. Input rejected by validation prints the error report and exits 1.

Example:
  flowgraph run "hello   world"
  flowgraph run --file note.txt --format json
  echo "hello world" | flowgraph run`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContent(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read content from file (- for stdin)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (default: generated UUIDv7)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "step limit for the run (default: from config)")
	cmd.Flags().IntVar(&opts.MaxLength, "max-length", 0, "maximum content length in characters (default: from config)")

	return cmd
}

func runContent(cmd *cobra.Command, opts *RunOptions, args []string) error {
	if len(args) > 0 && opts.File != "" {
		return NewExitError(ExitCommandError, "content argument and --file are mutually exclusive")
	}

	text, err := readInput(cmd, args, opts.File)
	if err != nil {
		return err
	}

	p, _, err := opts.newPipeline(cmd, func(cfg *pipeline.Config) {
		if opts.MaxLength > 0 {
			cfg.Content.MaxLength = opts.MaxLength
		}
	})
	if err != nil {
		return err
	}
	defer p.Close(context.WithoutCancel(cmd.Context()))

	var runOpts []graph.RunOption
	if opts.RunID != "" {
		runOpts = append(runOpts, graph.WithRunID(opts.RunID))
	}
	if opts.MaxSteps > 0 {
		runOpts = append(runOpts, graph.WithMaxSteps(opts.MaxSteps))
	}

	res, runErr := p.Process(cmd.Context(), text, runOpts...)
	return reportRun(cmd, opts.RootOptions, res, runErr)
}

func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	var (
		data []byte
		err  error
	)
	if file == "" || file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to read content", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// reportRun prints a finished run and maps its outcome to an exit code.
func reportRun(cmd *cobra.Command, opts *RootOptions, res *content.Result, runErr error) error {
	if res != nil {
		if err := writeResult(cmd.OutOrStdout(), opts.Format, res); err != nil {
			return WrapExitError(ExitCommandError, "failed to write result", err)
		}
	}

	switch {
	case runErr != nil:
		return WrapExitError(ExitFailure, "run failed", runErr)
	case !res.Valid():
		return NewExitError(ExitFailure, fmt.Sprintf("input rejected: %s", res.Error))
	}
	return nil
}

func writeResult(w io.Writer, format string, res *content.Result) error {
	if format == "json" {
		return writeJSON(w, res)
	}
	if res.FinalResult == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, res.FinalResult)
	return err
}
