// Package ipc defines the newline-delimited JSON protocol spoken between the
// job supervisor and a worker process over the worker's stdin and stdout.
//
// The supervisor writes Control messages to the worker's stdin. The worker
// writes Message values to its stdout, one JSON object per line. Anything
// the worker prints to stderr is treated as log output.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ProtocolVersion is the version of this protocol spoken by this build.
const ProtocolVersion = "1.0.0"

// MaxLineSize bounds a single protocol line.
const MaxLineSize = 1 << 20

// ControlType identifies a supervisor to worker message.
type ControlType string

const (
	// ControlTerminate asks the worker to stop, clean up and exit promptly.
	ControlTerminate ControlType = "terminate"
	// ControlEmitInitState asks the worker to re-send its initial-state message.
	ControlEmitInitState ControlType = "emit_init_state"
)

// Event names emitted by the bundled workers. Other names are legal and are
// relayed verbatim.
const (
	EventInitState = "SCAN_INIT_STATE"
	EventProgress  = "SCAN_PROGRESS"
	EventComplete  = "SCAN_COMPLETE"
	EventCancelled = "SCAN_CANCELLED"
)

// Control is a supervisor to worker message.
type Control struct {
	Type ControlType `json:"type" validate:"required,oneof=terminate emit_init_state"`
}

// Message is a worker to supervisor message.
type Message struct {
	Event   string          `json:"event" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrMalformed is returned for lines that are not a valid message.
var ErrMalformed = errors.New("malformed ipc message")

var validate = validator.New()

// DecodeMessage parses and validates a single worker output line.
func DecodeMessage(line []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(line, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

// DecodeControl parses and validates a single supervisor line.
func DecodeControl(line []byte) (Control, error) {
	var c Control
	if err := json.Unmarshal(line, &c); err != nil {
		return Control{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(c); err != nil {
		return Control{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return c, nil
}

// Encoder writes protocol values as JSON lines. It is safe for concurrent use.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes v followed by a newline as a single write.
func (e *Encoder) Encode(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode ipc message: %w", err)
	}
	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(data)
	return err
}

// NewScanner returns a line scanner sized for protocol lines.
func NewScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return sc
}
