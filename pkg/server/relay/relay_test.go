package relay

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

type broadcast struct {
	event   string
	payload any
}

type recordingBroadcaster struct {
	sent []broadcast
}

func (b *recordingBroadcaster) Broadcast(event string, payload any) int {
	b.sent = append(b.sent, broadcast{event: event, payload: payload})
	return 1
}

func TestRelay_ForwardIsVerbatim(t *testing.T) {
	out := &recordingBroadcaster{}
	r := New(out, zerolog.Nop())

	payload := json.RawMessage(`{"pct":40,"extra":[1,2]}`)
	r.Forward(jobs.Event{JobID: "j", Kind: jobs.EventProgress, Name: "SCAN_PROGRESS", Payload: payload})

	require.Len(t, out.sent, 1)
	require.Equal(t, "SCAN_PROGRESS", out.sent[0].event)
	require.Equal(t, payload, out.sent[0].payload)
}

func TestRelay_JobStarted(t *testing.T) {
	out := &recordingBroadcaster{}
	r := New(out, zerolog.Nop())

	started := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	r.JobStarted(jobs.Status{ID: "j1", Kind: jobs.KindScan, PID: 42, StartedAt: started})

	require.Equal(t, []broadcast{{
		event:   EventJobStarted,
		payload: JobStart{JobID: "j1", Kind: jobs.KindScan, StartedAt: started},
	}}, out.sent)
}

func TestRelay_JobExited(t *testing.T) {
	tests := []struct {
		name    string
		outcome jobs.Outcome
		want    []broadcast
	}{
		{"clean exit is silent", jobs.Outcome{Code: 0}, nil},
		{"nonzero exit", jobs.Outcome{Code: 1, Err: errors.New("exit status 1")}, []broadcast{{
			event:   EventScanError,
			payload: JobFailure{JobID: "j1", Kind: jobs.KindUpdate, ExitCode: 1, Error: "exit status 1"},
		}}},
		{"killed by signal", jobs.Outcome{Code: -1}, []broadcast{{
			event:   EventScanError,
			payload: JobFailure{JobID: "j1", Kind: jobs.KindUpdate, ExitCode: -1},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &recordingBroadcaster{}
			r := New(out, zerolog.Nop())
			r.JobExited(jobs.Status{ID: "j1", Kind: jobs.KindUpdate}, tt.outcome)
			require.Equal(t, tt.want, out.sent)
		})
	}
}
