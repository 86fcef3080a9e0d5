// Package worker provides the hidden 'shelfkeeper worker' command that the
// server launches for every job.
package worker

import (
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/internal/bind"
	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
	"github.com/shelfkeeper/shelfkeeper/pkg/logging"
	"github.com/shelfkeeper/shelfkeeper/pkg/storage"
	"github.com/shelfkeeper/shelfkeeper/pkg/worker"
)

// NewCommand returns the worker command. It speaks the ipc protocol on
// stdin and stdout and logs JSON to stderr.
//
// Exit codes:
//   - 0: job completed or was cancelled by a terminate control
//   - 1: job failed
//   - 2: bad arguments
//   - 3: incompatible protocol version
//   - 4: data directory locked by another worker
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "worker <scan|update|modify>",
		Short:  "Run one maintenance job (started by the server)",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := bind.BindWorkerOptions(cmd, args)
			if err != nil {
				return err
			}

			// The server forwards Ctrl-C as a terminate control.
			signal.Ignore(os.Interrupt)

			logger := logging.NewLoggerWithWriter("worker", logging.ParseLevel(opts.LogLevel), cmd.ErrOrStderr())

			store, err := storage.Open(opts.Storage)
			if err != nil {
				code := worker.ExitFailure
				if storage.IsInvalidInput(err) {
					code = worker.ExitUsage
				}
				return &worker.ExitError{Code: code, Err: err}
			}
			if err := store.Lock(); err != nil {
				if errors.Is(err, storage.ErrLocked) {
					return &worker.ExitError{Code: worker.ExitLocked, Err: err}
				}
				return &worker.ExitError{Code: worker.ExitFailure, Err: err}
			}
			defer func() {
				if err := store.Unlock(); err != nil {
					logger.Warn().Err(err).Msg("Failed to release data directory lock")
				}
			}()

			job, err := worker.New(opts.Kind, worker.Options{RefreshAll: opts.RefreshAll, Logger: logger})
			if err != nil {
				return &worker.ExitError{Code: worker.ExitUsage, Err: err}
			}

			runner := worker.NewRunner(job, store, opts.JobID, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
			if err := runner.Run(cmd.Context()); err != nil {
				return &worker.ExitError{Code: worker.ExitFailure, Err: err}
			}
			return nil
		},
	}

	cmd.Flags().String("protocol", ipc.ProtocolVersion, "ipc protocol version spoken by the server")
	cmd.Flags().String("job-id", "", "Job ID assigned by the server")
	cmd.Flags().Bool("refresh-all", false, "Re-hash every file (update only)")
	config.BindLibraryFlags(cmd.Flags())

	return cmd
}
