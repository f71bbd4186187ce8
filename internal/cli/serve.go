package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flowgraph/pipeline"
	"github.com/tailored-agentic-units/flowgraph/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr    string
	Metrics bool
	Tracing bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		Long: `Start the HTTP server and block until interrupted.

In-flight requests drain for up to server.shutdown_timeout after the
signal.

Example:
  flowgraph serve --addr :9090 --metrics
  flowgraph serve --config flowgraph.yaml --log-format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default: from config)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "enable /metrics")
	cmd.Flags().BoolVar(&opts.Tracing, "tracing", false, "export spans")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	p, logger, err := opts.newPipeline(cmd, func(cfg *pipeline.Config) {
		if opts.Addr != "" {
			cfg.Server.Addr = opts.Addr
		}
		if opts.Metrics {
			cfg.Metrics.Enabled = true
		}
		if opts.Tracing {
			cfg.Tracing.Enabled = true
		}
	})
	if err != nil {
		return err
	}
	defer p.Close(context.WithoutCancel(cmd.Context()))

	srv := server.New(p, p.Config().Server, logger)
	if err := srv.ListenAndServe(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "server failed", err)
	}

	logger.Info("server stopped")
	return nil
}
