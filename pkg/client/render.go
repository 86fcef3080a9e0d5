package client

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cast"

	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/relay"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/ws"
	"github.com/shelfkeeper/shelfkeeper/pkg/stringutil"
)

const (
	pathWidth    = 32
	payloadWidth = 160
)

var (
	colorOK    = lipgloss.Color("#22c55e")
	colorWarn  = lipgloss.Color("#eab308")
	colorError = lipgloss.Color("#ef4444")
	colorMuted = lipgloss.Color("#6b7280")
)

// Renderer prints job events for a terminal. Progress is shown as a bar.
type Renderer struct {
	out io.Writer
	bar *progressbar.ProgressBar

	ok, warn, fail, muted, bold lipgloss.Style
}

// NewRenderer creates a renderer writing to out. With color false the
// output is plain text.
func NewRenderer(out io.Writer, color bool) *Renderer {
	r := &Renderer{out: out}
	if color {
		lr := lipgloss.NewRenderer(out)
		r.ok = lr.NewStyle().Foreground(colorOK).Bold(true)
		r.warn = lr.NewStyle().Foreground(colorWarn)
		r.fail = lr.NewStyle().Foreground(colorError).Bold(true)
		r.muted = lr.NewStyle().Foreground(colorMuted)
		r.bold = lr.NewStyle().Bold(true)
	}
	return r
}

// Terminal reports whether event ends the current job.
func Terminal(event string) bool {
	switch event {
	case ipc.EventComplete, ipc.EventCancelled, relay.EventScanError:
		return true
	}
	return false
}

// Render prints one event.
func (r *Renderer) Render(env ws.Envelope) {
	payload := decodePayload(env.Payload)

	switch env.Event {
	case ws.EventSuccess:
		user := cast.ToStringMap(payload["user"])
		r.line(r.muted, "connected as %s", cast.ToString(user["name"]))

	case relay.EventJobStarted:
		r.line(r.bold, "%s job %s started", cast.ToString(payload["kind"]), shortID(payload["job_id"]))

	case ipc.EventInitState:
		r.startBar(cast.ToString(payload["kind"]), cast.ToInt(payload["total"]))
		r.setBar(cast.ToInt(payload["done"]))

	case ipc.EventProgress:
		if r.bar == nil {
			r.startBar("", cast.ToInt(payload["total"]))
		}
		if path := cast.ToString(payload["path"]); path != "" {
			r.bar.Describe(stringutil.ShortenPath(path, pathWidth))
		}
		r.setBar(cast.ToInt(payload["done"]))

	case ipc.EventComplete:
		r.finishBar()
		r.line(r.ok, "✓ job complete  %s", summarize(payload))

	case ipc.EventCancelled:
		r.abandonBar()
		r.line(r.warn, "job cancelled after %d of %d items", cast.ToInt(payload["done"]), cast.ToInt(payload["total"]))

	case relay.EventScanError:
		r.abandonBar()
		msg := fmt.Sprintf("✗ %s job failed with exit code %d", cast.ToString(payload["kind"]), cast.ToInt(payload["exit_code"]))
		if e := cast.ToString(payload["error"]); e != "" {
			msg += ": " + e
		}
		r.line(r.fail, "%s", msg)

	case ws.EventJobRejected:
		r.line(r.warn, "%s rejected: %s (%s)",
			cast.ToString(payload["signal"]), cast.ToString(payload["reason"]), cast.ToString(payload["code"]))

	default:
		r.line(r.muted, "%s %s", env.Event, stringutil.Ellipsis(string(env.Payload), payloadWidth))
	}
}

func (r *Renderer) line(style lipgloss.Style, format string, args ...any) {
	if r.bar != nil {
		_ = r.bar.Clear()
	}
	fmt.Fprintln(r.out, style.Render(fmt.Sprintf(format, args...)))
}

func (r *Renderer) startBar(kind string, total int) {
	if r.bar != nil {
		r.abandonBar()
	}
	if total <= 0 {
		total = -1
	}
	desc := "working"
	if kind != "" {
		desc = kind
	}
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(r.out) }),
	)
}

func (r *Renderer) setBar(done int) {
	if r.bar != nil && done >= 0 {
		_ = r.bar.Set(done)
	}
}

func (r *Renderer) finishBar() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

func (r *Renderer) abandonBar() {
	if r.bar != nil {
		_ = r.bar.Exit()
		fmt.Fprintln(r.out)
		r.bar = nil
	}
}

func decodePayload(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return map[string]any{"value": v}
	}
	return m
}

func summarize(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, cast.ToString(payload[k])))
	}
	return strings.Join(parts, " ")
}

func shortID(v any) string {
	id := cast.ToString(v)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
