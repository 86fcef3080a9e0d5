package server

import (
	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/bind"
	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/format"
	"github.com/shelfkeeper/shelfkeeper/pkg/appctx"
	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/logging"
	serversvc "github.com/shelfkeeper/shelfkeeper/pkg/server"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/app"
)

// newStartServerCommand creates and returns the 'shelfkeeper server start' command.
//
// The server hosts in a single runtime:
//   - REST endpoints under /api/v1 (job status, start, cancel, config)
//   - the /ws endpoint streaming worker events to every session
//   - health and readiness endpoints (/healthz, /readyz)
//   - the job supervisor, which runs one worker process at a time
//
// Configuration is loaded from, lowest precedence first:
//   - built-in defaults
//   - the config file (--config)
//   - environment variables (SHELFKEEPER_*)
//   - flags (--server.port, --library.root, ...)
//
// Example usage:
//
//	shelfkeeper server start --library.root /srv/books
//	shelfkeeper server start -c shelfkeeper.yaml --server.addr 0.0.0.0
func newStartServerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the shelfkeeper server",
		Long: `Start the shelfkeeper server process.

The server runs until interrupted (Ctrl+C) or terminated. On shutdown a
running worker is asked to terminate and given jobs.cancel_timeout to exit.
SIGHUP and edits to the config file reload the user table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			opts, err := bind.BindServerOptions(cmd)
			if err != nil {
				return formatter.PrintTotalFailureSummary("start server", err, serversvc.ErrorCode(err))
			}
			cfg := opts.Config

			logger := logging.NewLogger("server", logging.ParseLevel(cfg.Log.Level))

			deps := &app.Deps{
				Config: opts.Manager,
				Bus:    appctx.Bus(cmd.Context()),
				Logger: logger,
			}

			serverApp, err := app.New(cmd.Context(), cfg, deps)
			if err != nil {
				wrapped := serversvc.WrapAppInit(err)
				return formatter.PrintTotalFailureSummary("start server", wrapped, serversvc.ErrorCode(wrapped))
			}

			ctx, stop := serversvc.WithShutdownSignals(cmd.Context())
			defer stop()
			go serversvc.HandleReloadSignals(ctx, func() error { return serverApp.Reload(ctx) }, logger)

			// Run server (blocks until shutdown)
			if runErr := serverApp.Run(ctx); runErr != nil {
				wrapped := serversvc.WrapRuntime(runErr)
				return formatter.PrintTotalFailureSummary("start server", wrapped, serversvc.ErrorCode(wrapped))
			}

			return nil
		},
	}

	config.BindServerFlags(cmd.Flags())
	config.BindLibraryFlags(cmd.Flags())
	config.BindJobsFlags(cmd.Flags())

	return cmd
}
