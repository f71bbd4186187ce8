package cli

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flowgraph/content"
	"github.com/tailored-agentic-units/flowgraph/pipeline"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	Workers    int
	NoFailFast bool
}

type batchItem struct {
	Index  int             `json:"index"`
	Result *content.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Process one input per line concurrently",
		Long: `Process every line of a file (or stdin) as an independent run.

Runs execute on a bounded worker pool. Results print in input order. A run
failure stops the batch unless --no-fail-fast is set; inputs rejected by
validation are ordinary results.

Example:
  flowgraph batch inputs.txt --workers 4
  cat inputs.txt | flowgraph batch --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "worker count (default: from config)")
	cmd.Flags().BoolVar(&opts.NoFailFast, "no-fail-fast", false, "run every input even after a failure")

	return cmd
}

func runBatch(cmd *cobra.Command, opts *BatchOptions, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open input", err)
		}
		defer f.Close()
		r = f
	}

	inputs, err := readLines(r)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	p, logger, err := opts.newPipeline(cmd, func(cfg *pipeline.Config) {
		if opts.Workers > 0 {
			cfg.Batch.MaxWorkers = opts.Workers
		}
		if opts.NoFailFast {
			failFast := false
			cfg.Batch.FailFastNil = &failFast
		}
	})
	if err != nil {
		return err
	}
	defer p.Close(context.WithoutCancel(cmd.Context()))

	res, batchErr := p.ProcessBatch(cmd.Context(), inputs, func(completed, total int, _ *content.Result) {
		logger.Debug("batch progress", "completed", completed, "total", total)
	})

	items := make([]batchItem, 0, len(res.Results)+len(res.Errors))
	for _, done := range res.Results {
		items = append(items, batchItem{Index: done.Index, Result: done.Value})
	}
	for _, e := range res.Errors {
		items = append(items, batchItem{Index: e.Index, Error: e.Err.Error()})
	}
	slices.SortFunc(items, func(a, b batchItem) int { return cmp.Compare(a.Index, b.Index) })

	if err := writeBatch(cmd.OutOrStdout(), opts.Format, items); err != nil {
		return WrapExitError(ExitCommandError, "failed to write results", err)
	}

	if batchErr != nil {
		return WrapExitError(ExitFailure, "batch failed", batchErr)
	}
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func writeBatch(w io.Writer, format string, items []batchItem) error {
	if format == "json" {
		return writeJSON(w, items)
	}
	for _, item := range items {
		var err error
		switch {
		case item.Error != "":
			_, err = fmt.Fprintf(w, "[%d] failed: %s\n\n", item.Index, item.Error)
		default:
			_, err = fmt.Fprintf(w, "[%d] %s\n\n", item.Index, item.Result.FinalResult)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
