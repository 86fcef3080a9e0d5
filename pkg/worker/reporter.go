package worker

import (
	"sync"
	"time"

	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

// InitState is the payload of SCAN_INIT_STATE. It is sent when a job starts
// and again whenever the server asks for it.
type InitState struct {
	JobID     string    `json:"job_id"`
	Kind      jobs.Kind `json:"kind"`
	Total     int       `json:"total"`
	Done      int       `json:"done"`
	Pct       int       `json:"pct"`
	StartedAt time.Time `json:"started_at"`
}

// Progress is the payload of SCAN_PROGRESS.
type Progress struct {
	Pct   int    `json:"pct"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
	Path  string `json:"path,omitempty"`
}

// Reporter tracks job progress and writes protocol messages. Progress
// messages are only written when the whole percentage changes.
type Reporter struct {
	enc *ipc.Encoder

	mu      sync.Mutex
	state   InitState
	lastPct int
}

func newReporter(enc *ipc.Encoder, jobID string, kind jobs.Kind) *Reporter {
	return &Reporter{
		enc:     enc,
		lastPct: -1,
		state: InitState{
			JobID:     jobID,
			Kind:      kind,
			StartedAt: time.Now().UTC(),
		},
	}
}

// Begin records the amount of work and announces the job.
func (r *Reporter) Begin(total int) error {
	r.mu.Lock()
	r.state.Total = total
	r.state.Done = 0
	r.state.Pct = percent(0, total)
	r.mu.Unlock()
	return r.EmitInitState()
}

// EmitInitState writes the current initial-state message.
func (r *Reporter) EmitInitState() error {
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()
	return r.enc.Encode(ipc.Message{Event: ipc.EventInitState, Payload: mustJSON(state)})
}

// Step marks one unit of work as done.
func (r *Reporter) Step(path string) error {
	r.mu.Lock()
	r.state.Done++
	r.state.Pct = percent(r.state.Done, r.state.Total)
	p := Progress{Pct: r.state.Pct, Done: r.state.Done, Total: r.state.Total, Path: path}
	emit := p.Pct != r.lastPct || p.Done == p.Total
	if emit {
		r.lastPct = p.Pct
	}
	r.mu.Unlock()

	if !emit {
		return nil
	}
	return r.enc.Encode(ipc.Message{Event: ipc.EventProgress, Payload: mustJSON(p)})
}

// State returns a snapshot of the progress.
func (r *Reporter) State() InitState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reporter) complete(summary any) error {
	return r.enc.Encode(ipc.Message{Event: ipc.EventComplete, Payload: mustJSON(summary)})
}

func (r *Reporter) cancelled() error {
	state := r.State()
	return r.enc.Encode(ipc.Message{Event: ipc.EventCancelled, Payload: mustJSON(map[string]any{
		"job_id": state.JobID,
		"kind":   state.Kind,
		"done":   state.Done,
		"total":  state.Total,
	})})
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}
