// Package worker implements the maintenance jobs executed by the
// "shelfkeeper worker" command. A worker reads control messages from stdin
// and reports progress on stdout using the ipc protocol.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
	"github.com/shelfkeeper/shelfkeeper/pkg/storage"
)

// Exit codes of the worker command.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitIncompatible = 3
	ExitLocked       = 4
)

// ExitError carries the process exit code for a failed worker.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by the worker command to its exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

// Job is one maintenance task. Run returns the payload of SCAN_COMPLETE.
// It must stop promptly once ctx is cancelled and return ctx.Err().
type Job interface {
	Kind() jobs.Kind
	Run(ctx context.Context, store *storage.Store, r *Reporter) (any, error)
}

// Options configures a job built by New.
type Options struct {
	// RefreshAll makes update jobs re-hash every file.
	RefreshAll bool
	Logger     zerolog.Logger
}

// New returns the job for kind.
func New(kind jobs.Kind, opts Options) (Job, error) {
	switch kind {
	case jobs.KindScan:
		return &Scanner{logger: opts.Logger}, nil
	case jobs.KindUpdate:
		return &Updater{RefreshAll: opts.RefreshAll, logger: opts.Logger}, nil
	case jobs.KindModify:
		return &Modifier{logger: opts.Logger}, nil
	}
	return nil, fmt.Errorf("%w: %q", jobs.ErrUnknownKind, kind)
}

// Runner drives a Job and speaks the ipc protocol on its behalf.
type Runner struct {
	job    Job
	store  *storage.Store
	jobID  string
	in     io.Reader
	enc    *ipc.Encoder
	logger zerolog.Logger
}

// NewRunner creates a runner reading controls from in and writing messages to out.
func NewRunner(job Job, store *storage.Store, jobID string, in io.Reader, out io.Writer, logger zerolog.Logger) *Runner {
	return &Runner{
		job:   job,
		store: store,
		jobID: jobID,
		in:    in,
		enc:   ipc.NewEncoder(out),
		logger: logger.With().
			Str("component", "worker").
			Str("job_id", jobID).
			Str("kind", string(job.Kind())).
			Logger(),
	}
}

// Run executes the job. A terminate control cancels it; the runner then
// reports SCAN_CANCELLED and returns nil. Closing stdin does not cancel.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rep := newReporter(r.enc, r.jobID, r.job.Kind())
	var terminated atomic.Bool
	go r.readControls(rep, func() {
		terminated.Store(true)
		cancel()
	})

	r.logger.Info().Msg("Job started")
	summary, err := r.job.Run(ctx, r.store, rep)

	switch {
	case err == nil:
		r.logger.Info().Interface("summary", summary).Msg("Job complete")
		return r.emit(rep.complete(summary))
	case terminated.Load() && errors.Is(err, context.Canceled):
		state := rep.State()
		r.logger.Info().Int("done", state.Done).Int("total", state.Total).Msg("Job cancelled")
		return r.emit(rep.cancelled())
	default:
		r.logger.Error().Err(err).Msg("Job failed")
		return err
	}
}

func (r *Runner) emit(err error) error {
	if err != nil {
		return fmt.Errorf("write to supervisor: %w", err)
	}
	return nil
}

func (r *Runner) readControls(rep *Reporter, terminate func()) {
	sc := ipc.NewScanner(r.in)
	for sc.Scan() {
		c, err := ipc.DecodeControl(sc.Bytes())
		if err != nil {
			r.logger.Warn().Err(err).Msg("Ignoring control message")
			continue
		}

		switch c.Type {
		case ipc.ControlTerminate:
			r.logger.Debug().Msg("Terminate requested")
			terminate()
		case ipc.ControlEmitInitState:
			if err := rep.EmitInitState(); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to resend initial state")
			}
		}
	}
	if err := sc.Err(); err != nil {
		r.logger.Warn().Err(err).Msg("Control stream failed")
	}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("worker: marshal %T: %v", v, err))
	}
	return data
}
