// Package relay turns job supervisor notifications into client broadcasts.
package relay

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

// Events the relay adds on top of what workers emit.
const (
	EventJobStarted = "JOB_STARTED"
	EventScanError  = "SCAN_ERROR"
)

// Broadcaster delivers an event to every connected client.
type Broadcaster interface {
	Broadcast(event string, payload any) int
}

// JobStart is the JOB_STARTED payload.
type JobStart struct {
	JobID     string    `json:"job_id"`
	Kind      jobs.Kind `json:"kind"`
	StartedAt time.Time `json:"started_at"`
}

// JobFailure is the SCAN_ERROR payload.
type JobFailure struct {
	JobID    string    `json:"job_id"`
	Kind     jobs.Kind `json:"kind"`
	ExitCode int       `json:"exit_code"`
	Error    string    `json:"error,omitempty"`
}

// Relay implements jobs.Sink.
type Relay struct {
	out    Broadcaster
	logger zerolog.Logger
}

var _ jobs.Sink = (*Relay)(nil)

// New creates a relay writing to out.
func New(out Broadcaster, logger zerolog.Logger) *Relay {
	return &Relay{
		out:    out,
		logger: logger.With().Str("component", "relay").Logger(),
	}
}

// JobStarted announces a new job.
func (r *Relay) JobStarted(st jobs.Status) {
	r.out.Broadcast(EventJobStarted, JobStart{JobID: st.ID, Kind: st.Kind, StartedAt: st.StartedAt})
}

// Forward broadcasts a worker event with its name and payload unchanged.
func (r *Relay) Forward(ev jobs.Event) {
	n := r.out.Broadcast(ev.Name, ev.Payload)
	r.logger.Trace().
		Str("job_id", ev.JobID).
		Str("event", ev.Name).
		Int("clients", n).
		Msg("Relayed worker event")
}

// JobExited broadcasts SCAN_ERROR for abnormal exits. Clean exits were
// already announced by the worker's own completion or cancellation event.
func (r *Relay) JobExited(st jobs.Status, out jobs.Outcome) {
	if !out.Failed() {
		r.logger.Debug().Str("job_id", st.ID).Msg("Job finished cleanly")
		return
	}

	failure := JobFailure{
		JobID:    st.ID,
		Kind:     st.Kind,
		ExitCode: out.Code,
	}
	if out.Err != nil {
		failure.Error = out.Err.Error()
	}
	n := r.out.Broadcast(EventScanError, failure)
	r.logger.Warn().
		Str("job_id", st.ID).
		Int("exit_code", out.Code).
		Int("clients", n).
		Msg("Broadcast abnormal job termination")
}
