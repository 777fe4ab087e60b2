package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tinyquery/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var (
		addr    string
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiler over HTTP",
		Long: `Start an HTTP service that compiles queries against the catalog.

Endpoints:
  POST /v1/compile        compile {"query": "..."} and return the job
  GET  /v1/jobs/{id}      fetch a previous compile job
  GET  /v1/tables         list catalog entries (?dataset=NAME to filter)
  GET  /v1/tables/{name}  show a table's columns or a view's query and scope
  GET  /healthz           liveness

The catalog file is reloaded when it changes unless --no-watch is given.`,
		Example: `  tinyquery serve --catalog catalog.yaml --addr :9090`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if !cmd.Flags().Changed("addr") {
				addr = cmdCtx.Cfg.Server.Addr
			}
			srv := server.New(server.Config{
				Engine:          cmdCtx.Engine,
				Addr:            addr,
				ShutdownTimeout: cmdCtx.Cfg.Server.ShutdownTimeout,
				Watch:           !noWatch,
				Logger:          cmdCtx.Logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmdCtx.Renderer.Printf("Serving on %s (%d catalog entries)\n", addr, cmdCtx.Engine.Catalog().Len())
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the catalog file on change")
	return cmd
}
