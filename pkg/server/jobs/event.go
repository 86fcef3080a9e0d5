package jobs

import (
	"encoding/json"

	"github.com/spf13/cast"

	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
)

// EventKind classifies worker events the supervisor understands.
// Anything else is EventRaw and is still relayed unchanged.
type EventKind int

const (
	EventRaw EventKind = iota
	EventInitState
	EventProgress
	EventComplete
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventInitState:
		return "init_state"
	case EventProgress:
		return "progress"
	case EventComplete:
		return "complete"
	case EventCancelled:
		return "cancelled"
	default:
		return "raw"
	}
}

// Event is a validated worker message tagged with the job that produced it.
// Name and Payload are forwarded to clients exactly as the worker sent them.
type Event struct {
	JobID   string
	Kind    EventKind
	Name    string
	Payload json.RawMessage
}

func classify(jobID string, m ipc.Message) Event {
	ev := Event{JobID: jobID, Name: m.Event, Payload: m.Payload}
	switch m.Event {
	case ipc.EventInitState:
		ev.Kind = EventInitState
	case ipc.EventProgress:
		ev.Kind = EventProgress
	case ipc.EventComplete:
		ev.Kind = EventComplete
	case ipc.EventCancelled:
		ev.Kind = EventCancelled
	}
	return ev
}

// Progress extracts the "pct" field from the payload, if present.
func (e Event) Progress() (float64, bool) {
	if len(e.Payload) == 0 {
		return 0, false
	}
	var fields map[string]any
	if err := json.Unmarshal(e.Payload, &fields); err != nil {
		return 0, false
	}
	v, ok := fields["pct"]
	if !ok {
		return 0, false
	}
	pct, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return pct, true
}
