package jobs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAlreadyRunning is returned by Start while another job occupies the slot.
	ErrAlreadyRunning = errors.New("a job is already running")

	// ErrNoActiveJob is returned by Cancel and RequestInitState when the slot is empty.
	ErrNoActiveJob = errors.New("no job is running")

	// ErrSpawnFailed matches every *SpawnError.
	ErrSpawnFailed = errors.New("failed to start worker")

	// ErrUnknownKind is returned for job kinds this build does not provide.
	ErrUnknownKind = errors.New("unknown job kind")

	// ErrWorkerGone is returned when the worker's control channel is closed.
	ErrWorkerGone = errors.New("worker is no longer accepting control messages")

	// ErrShuttingDown is returned by Start after Shutdown has begun.
	ErrShuttingDown = errors.New("job supervisor is shutting down")
)

// SpawnError reports a worker that could not be launched.
type SpawnError struct {
	Kind Kind
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("start %s worker: %v", e.Kind, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSpawnFailed) hold for any SpawnError.
func (e *SpawnError) Is(target error) bool { return target == ErrSpawnFailed }

// ErrorCode maps job errors to the stable codes used in JOB_REJECTED
// notifications and API error bodies.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyRunning):
		return "JOB_ALREADY_RUNNING"
	case errors.Is(err, ErrNoActiveJob):
		return "JOB_NOT_RUNNING"
	case errors.Is(err, ErrSpawnFailed):
		return "JOB_SPAWN_FAILED"
	case errors.Is(err, ErrUnknownKind):
		return "JOB_UNKNOWN_KIND"
	case errors.Is(err, ErrWorkerGone):
		return "JOB_WORKER_GONE"
	case errors.Is(err, ErrShuttingDown):
		return "SHUTTING_DOWN"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus maps job errors to HTTP status codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, ErrNoActiveJob), errors.Is(err, ErrWorkerGone):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
