// Package bind turns command flags and the loaded configuration into
// validated options for the shelfkeeper commands.
package bind

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shelfkeeper/shelfkeeper/pkg/appctx"
	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	srv "github.com/shelfkeeper/shelfkeeper/pkg/server"
)

// ServerOptions holds the resolved configuration for the server start command.
type ServerOptions struct {
	Manager *config.Manager
	Config  config.Config
}

// BindServerOptions resolves and validates the configuration of 'server start'.
//
// Checks, in order:
//   - --server.port: 1-65535
//   - the whole config tree (auth users, timeouts, log level)
//   - library.root: an existing directory, made absolute
//   - jobs.worker_path: executable, or this binary when empty
//
// Each failure carries a server error code for PrintTotalFailureSummary.
func BindServerOptions(cmd *cobra.Command) (ServerOptions, error) {
	mgr, ok := appctx.Config(cmd.Context())
	if !ok {
		return ServerOptions{}, srv.ErrConfigUnavailable
	}
	cfg := mgr.Get()

	// Validate port range
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return ServerOptions{}, srv.NewInvalidPortError(cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return ServerOptions{}, srv.WrapInvalidConfig(err)
	}

	root, err := libraryRoot(cfg.Library.Root)
	if err != nil {
		return ServerOptions{}, srv.NewLibraryMissingError(cfg.Library.Root, err)
	}
	cfg.Library.Root = root

	worker, err := workerPath(cfg.Jobs.WorkerPath)
	if err != nil {
		return ServerOptions{}, srv.NewWorkerUnavailableError(cfg.Jobs.WorkerPath, err)
	}
	cfg.Jobs.WorkerPath = worker

	return ServerOptions{Manager: mgr, Config: cfg}, nil
}

func libraryRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", errors.New("not a directory")
	}
	return abs, nil
}

func workerPath(path string) (string, error) {
	if path == "" {
		self, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate own executable: %w", err)
		}
		return self, nil
	}
	return exec.LookPath(path)
}
