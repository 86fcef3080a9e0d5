package ws

import (
	"encoding/json"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/auth"
)

// Signals a client may send.
const (
	SignalScannerPage   = "ON_SCANNER_PAGE"
	SignalPerformScan   = "PERFORM_SCAN"
	SignalPerformUpdate = "PERFORM_UPDATE"
	SignalPerformModify = "PERFORM_MODIFY"
	SignalKillScan      = "KILL_SCAN_PROCESS"
)

// Events the session layer itself sends. Job events are produced by the relay.
const (
	EventSuccess     = "success"
	EventJobRejected = "JOB_REJECTED"
)

// Rejection codes that do not come from the job supervisor.
const (
	CodeForbidden  = "FORBIDDEN"
	CodeBadMessage = "BAD_MESSAGE"
)

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event   string          `json:"event" validate:"required,max=128"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Greeting is the payload of the "success" event sent on connect.
type Greeting struct {
	Message string        `json:"message"`
	User    auth.Identity `json:"user"`
	Auth    bool          `json:"auth"`
}

// Rejection tells the requesting client why a signal had no effect.
type Rejection struct {
	Signal string `json:"signal"`
	Reason string `json:"reason"`
	Code   string `json:"code"`
}

const greetingMessage = "Successfully logged into the admin backend."

func encode(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		if len(p) > 0 {
			raw = p
		}
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}
