package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
)

// Supervisor owns the single job slot: it launches workers, relays their
// events to a Sink and clears the slot when the worker exits.
type Supervisor struct {
	launcher      Launcher
	sink          Sink
	logger        zerolog.Logger
	cancelTimeout time.Duration
	sample        func(pid int) *ProcessStats
	now           func() time.Time

	mu       sync.Mutex
	slot     *slot
	stopping bool
	wg       sync.WaitGroup
}

type slot struct {
	id         string
	kind       Kind
	worker     Worker
	startedAt  time.Time
	cancelling bool
	lastEvent  string
	progress   float64
	dropped    int
	killTimer  *time.Timer
}

func (s *slot) status() Status {
	return Status{
		ID:         s.id,
		Kind:       s.kind,
		PID:        s.worker.PID(),
		StartedAt:  s.startedAt,
		Cancelling: s.cancelling,
		LastEvent:  s.lastEvent,
		Progress:   s.progress,
		Dropped:    s.dropped,
	}
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the supervisor logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger.With().Str("component", "jobs").Logger()
	}
}

// WithCancelTimeout kills a worker that is still running this long after
// Cancel. Zero waits indefinitely.
func WithCancelTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.cancelTimeout = d }
}

// WithProcessSampler overrides how worker resource usage is collected.
func WithProcessSampler(fn func(pid int) *ProcessStats) Option {
	return func(s *Supervisor) { s.sample = fn }
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(launcher Launcher, sink Sink, opts ...Option) *Supervisor {
	s := &Supervisor{
		launcher: launcher,
		sink:     sink,
		logger:   zerolog.Nop(),
		sample:   sampleProcess,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Controller = (*Supervisor)(nil)

// Start launches a worker for kind if the slot is free.
func (s *Supervisor) Start(ctx context.Context, kind Kind) (Status, error) {
	if !kind.Valid() {
		return Status{}, ErrUnknownKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		return Status{}, ErrShuttingDown
	}
	if s.slot != nil {
		s.logger.Info().
			Str("kind", string(kind)).
			Str("running_job", s.slot.id).
			Msg("Job request rejected, slot busy")
		return Status{}, ErrAlreadyRunning
	}

	id := uuid.NewString()
	w, err := s.launcher.Launch(ctx, Spec{JobID: id, Kind: kind})
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to launch worker")
		return Status{}, &SpawnError{Kind: kind, Err: err}
	}

	sl := &slot{
		id:        id,
		kind:      kind,
		worker:    w,
		startedAt: s.now(),
	}
	s.slot = sl
	st := sl.status()

	s.logger.Info().
		Str("job_id", id).
		Str("kind", string(kind)).
		Int("pid", st.PID).
		Msg("Job started")
	s.sink.JobStarted(st)

	s.wg.Add(1)
	go s.run(sl)

	return st, nil
}

// Cancel sends a terminate request to the running worker. Repeated calls
// while the worker is winding down resend the request but arm the kill
// timer only once.
func (s *Supervisor) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.slot
	if sl == nil {
		return ErrNoActiveJob
	}

	if err := sl.worker.Send(ipc.Control{Type: ipc.ControlTerminate}); err != nil {
		s.logger.Warn().Err(err).Str("job_id", sl.id).Msg("Failed to deliver terminate request")
		return err
	}

	if !sl.cancelling {
		sl.cancelling = true
		if s.cancelTimeout > 0 {
			sl.killTimer = time.AfterFunc(s.cancelTimeout, func() { s.killStale(sl) })
		}
		s.logger.Info().Str("job_id", sl.id).Msg("Job cancellation requested")
	}
	return nil
}

// RequestInitState asks the worker to re-emit its initial state so a newly
// attached client can render the job.
func (s *Supervisor) RequestInitState() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slot == nil {
		return ErrNoActiveJob
	}
	return s.slot.worker.Send(ipc.Control{Type: ipc.ControlEmitInitState})
}

// Status returns a snapshot of the running job, including resource usage.
func (s *Supervisor) Status() (Status, bool) {
	s.mu.Lock()
	sl := s.slot
	if sl == nil {
		s.mu.Unlock()
		return Status{}, false
	}
	st := sl.status()
	s.mu.Unlock()

	if s.sample != nil {
		st.Process = s.sample(st.PID)
	}
	return st, true
}

// Shutdown refuses new jobs, asks the running worker to terminate and waits
// for it to exit. If ctx ends first the worker is killed.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	sl := s.slot
	s.mu.Unlock()

	if sl != nil {
		if err := sl.worker.Send(ipc.Control{Type: ipc.ControlTerminate}); err != nil {
			s.logger.Debug().Err(err).Msg("Worker already gone at shutdown")
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Job supervisor stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Job supervisor shutdown timed out, killing worker")
		if sl != nil {
			_ = sl.worker.Kill()
		}
		<-done
		return ctx.Err()
	}
}

func (s *Supervisor) run(sl *slot) {
	defer s.wg.Done()

	for line := range sl.worker.Lines() {
		s.onMessage(sl, line)
	}
	s.onExit(sl, sl.worker.Wait())
}

func (s *Supervisor) onMessage(sl *slot, line []byte) {
	msg, err := ipc.DecodeMessage(line)
	if err != nil {
		s.mu.Lock()
		sl.dropped++
		s.mu.Unlock()
		s.logger.Warn().Err(err).Str("job_id", sl.id).Msg("Dropping invalid worker message")
		return
	}

	ev := classify(sl.id, msg)

	s.mu.Lock()
	sl.lastEvent = ev.Name
	switch ev.Kind {
	case EventInitState, EventProgress:
		if pct, ok := ev.Progress(); ok {
			sl.progress = pct
		}
	case EventComplete:
		sl.progress = 100
	}
	s.mu.Unlock()

	s.sink.Forward(ev)
}

func (s *Supervisor) onExit(sl *slot, out Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sl.killTimer != nil {
		sl.killTimer.Stop()
	}

	st := sl.status()
	logEvent := s.logger.Info()
	if out.Failed() {
		logEvent = s.logger.Warn().AnErr("exit_error", out.Err)
	}
	logEvent.
		Str("job_id", sl.id).
		Str("kind", string(sl.kind)).
		Int("exit_code", out.Code).
		Dur("duration", s.now().Sub(sl.startedAt)).
		Msg("Job exited")

	s.sink.JobExited(st, out)

	if s.slot == sl {
		s.slot = nil
	}
}

func (s *Supervisor) killStale(sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slot != sl {
		return
	}
	s.logger.Warn().
		Str("job_id", sl.id).
		Dur("timeout", s.cancelTimeout).
		Msg("Worker ignored terminate request, killing")
	if err := sl.worker.Kill(); err != nil {
		s.logger.Error().Err(err).Str("job_id", sl.id).Msg("Failed to kill worker")
	}
}
