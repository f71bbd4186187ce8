// Package cli implements the flowgraph command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flowgraph/pipeline"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "json" | "text"
	LogFormat  string // "json" | "text"
}

// ValidFormats defines the allowed output and log formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the flowgraph CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flowgraph",
		Short: "Run the content-processing workflow graph",
		Long: `flowgraph executes a declarative workflow graph that validates, normalizes
and formats text content. It runs single inputs, batches, checkpointed runs
and an HTTP server from the same configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if !slices.Contains(ValidFormats, opts.LogFormat) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid log format %q: must be one of %v", opts.LogFormat, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format on stderr (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewResumeCommand(opts))
	cmd.AddCommand(NewCheckpointsCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// Logger builds the stderr logger selected by the verbose and log-format
// flags.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if o.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// LoadConfig reads the config file when one was given and returns defaults
// otherwise.
func (o *RootOptions) LoadConfig() (*pipeline.Config, error) {
	if o.ConfigFile == "" {
		cfg := pipeline.DefaultConfig()
		return &cfg, nil
	}

	cfg, err := pipeline.LoadConfig(o.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newPipeline loads configuration, lets the command apply its flag
// overrides and builds the pipeline.
func (o *RootOptions) newPipeline(cmd *cobra.Command, override func(*pipeline.Config)) (*pipeline.Pipeline, *slog.Logger, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if override != nil {
		override(cfg)
	}

	logger := o.Logger(cmd.ErrOrStderr())
	p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to create pipeline", err)
	}
	return p, logger, nil
}
