package bind

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/pkg/appctx"
	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
	srv "github.com/shelfkeeper/shelfkeeper/pkg/server"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
	"github.com/shelfkeeper/shelfkeeper/pkg/storage"
	"github.com/shelfkeeper/shelfkeeper/pkg/worker"
)

// WorkerOptions holds the arguments the server passes to a worker process.
type WorkerOptions struct {
	Kind       jobs.Kind
	JobID      string
	Protocol   string
	RefreshAll bool
	Storage    storage.Config
	LogLevel   string
}

// BindWorkerOptions reads the worker flags. Usage errors exit with
// worker.ExitUsage and a protocol mismatch with worker.ExitIncompatible.
func BindWorkerOptions(cmd *cobra.Command, args []string) (WorkerOptions, error) {
	mgr, ok := appctx.Config(cmd.Context())
	if !ok {
		return WorkerOptions{}, &worker.ExitError{Code: worker.ExitFailure, Err: srv.ErrConfigUnavailable}
	}

	kind, err := BindJobKind(args)
	if err != nil {
		return WorkerOptions{}, &worker.ExitError{Code: worker.ExitUsage, Err: err}
	}

	protocol, _ := cmd.Flags().GetString("protocol")
	if err := ipc.CheckCompatible(protocol); err != nil {
		return WorkerOptions{}, &worker.ExitError{Code: worker.ExitIncompatible, Err: err}
	}

	jobID, _ := cmd.Flags().GetString("job-id")
	if jobID == "" {
		return WorkerOptions{}, &worker.ExitError{Code: worker.ExitUsage, Err: fmt.Errorf("--job-id is required")}
	}
	refreshAll, _ := cmd.Flags().GetBool("refresh-all")

	cfg := mgr.Get()
	return WorkerOptions{
		Kind:       kind,
		JobID:      jobID,
		Protocol:   protocol,
		RefreshAll: refreshAll,
		Storage: storage.Config{
			Root:       cfg.Library.Root,
			DataDir:    cfg.Library.DataDir,
			Extensions: cfg.Library.Extensions,
		},
		LogLevel: cfg.Log.Level,
	}, nil
}
