package jobs

import (
	"context"

	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
)

// Worker is a launched job process as seen by the supervisor.
type Worker interface {
	// PID is the operating system process id, or 0 if there is none.
	PID() int

	// Lines yields raw stdout lines. It is closed when the worker's output ends.
	Lines() <-chan []byte

	// Send writes a control message to the worker. It returns an error
	// wrapping ErrWorkerGone once the worker stopped reading.
	Send(c ipc.Control) error

	// Kill forcibly stops the worker.
	Kill() error

	// Wait blocks until the worker exited. Call it after Lines is drained.
	Wait() Outcome
}

// Spec describes the worker to launch.
type Spec struct {
	JobID string
	Kind  Kind
}

// Launcher starts workers.
type Launcher interface {
	Launch(ctx context.Context, spec Spec) (Worker, error)
}
