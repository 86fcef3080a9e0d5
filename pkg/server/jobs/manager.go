package jobs

import "context"

// Controller is the job control surface used by the WebSocket and REST layers.
// At most one job runs at a time; the Supervisor is the only implementation.
type Controller interface {
	// Start launches a worker for kind. It fails with ErrAlreadyRunning when
	// the slot is occupied and with a *SpawnError when the worker cannot start.
	Start(ctx context.Context, kind Kind) (Status, error)

	// Cancel asks the running worker to terminate. It fails with
	// ErrNoActiveJob when the slot is empty.
	Cancel() error

	// RequestInitState asks the running worker to re-emit its initial state.
	RequestInitState() error

	// Status returns a snapshot of the running job, if any.
	Status() (Status, bool)
}

// Sink receives everything the supervisor observes about the running job.
// Calls for one job arrive in order: JobStarted, Forward..., JobExited.
type Sink interface {
	JobStarted(st Status)
	Forward(ev Event)
	// JobExited is called before the slot is cleared, so no other job can
	// start until it returns.
	JobExited(st Status, out Outcome)
}
