package main

import (
	"errors"
	"os"

	"github.com/shelfkeeper/shelfkeeper/cmd/shelfkeeper/commands"
	serversvc "github.com/shelfkeeper/shelfkeeper/pkg/server"
	"github.com/shelfkeeper/shelfkeeper/pkg/worker"
)

// main runs the shelfkeeper CLI and exits with a status code based on the
// error type.
//
// Exit codes:
//   - 0: Success
//   - 1: General error (default)
//   - 2: Invalid usage/input (bad port, invalid configuration, worker arguments)
//   - 3: Worker protocol version mismatch
//   - 4: Data directory locked by another worker
//   - 7: Service unavailable (library root missing, worker executable missing)
func main() {
	command := commands.NewCommand()

	err := command.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code for an error.
func getExitCode(err error) int {
	var workerErr *worker.ExitError
	if errors.As(err, &workerErr) {
		return worker.ExitCode(err)
	}

	if serversvc.ErrorCode(err) != "SERVER_RUNTIME_FAILED" {
		return serversvc.ExitCode(err)
	}

	// Default to general error
	return 1
}
