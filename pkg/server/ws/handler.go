// Package ws serves the operator WebSocket: it greets each client, accepts
// job control signals and fans job events out to every connected session.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/auth"
	"github.com/shelfkeeper/shelfkeeper/pkg/server/jobs"
)

var validate = validator.New()

// Handler upgrades HTTP requests to sessions and dispatches client signals
// to the job controller.
type Handler struct {
	registry *Registry
	jobs     jobs.Controller
	upgrader websocket.Upgrader
	queue    int
	authOn   func() bool
	logger   zerolog.Logger

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
}

// NewHandler creates the WebSocket endpoint. authOn reports whether the
// caller had to present a token, which is echoed in the greeting.
func NewHandler(registry *Registry, ctrl jobs.Controller, cfg config.WSConfig, authOn func() bool, logger zerolog.Logger) *Handler {
	h := &Handler{
		registry:       registry,
		jobs:           ctrl,
		queue:          cfg.SendQueue,
		authOn:         authOn,
		logger:         logger.With().Str("component", "ws").Logger(),
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}
	if h.queue <= 0 {
		h.queue = 64
	}
	if h.authOn == nil {
		h.authOn = func() bool { return false }
	}

	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		h.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			h.allowedHosts[parsed.Host] = true
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP runs one session until the client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	s := newSession(conn, identity, h.queue, h.logger)
	go s.writePump()

	// The greeting is queued before the session can receive broadcasts.
	s.Emit(EventSuccess, Greeting{
		Message: greetingMessage,
		User:    identity,
		Auth:    h.authOn(),
	})
	h.registry.Add(s)
	defer h.registry.Remove(s)

	h.readLoop(r.Context(), s)
}

func (h *Handler) readLoop(ctx context.Context, s *Session) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || validate.Struct(env) != nil {
			s.logger.Warn().Msg("Ignoring malformed client message")
			s.Emit(EventJobRejected, Rejection{Reason: "malformed message", Code: CodeBadMessage})
			continue
		}
		h.dispatch(ctx, s, env.Event)
	}
}

var performSignals = map[string]jobs.Kind{
	SignalPerformScan:   jobs.KindScan,
	SignalPerformUpdate: jobs.KindUpdate,
	SignalPerformModify: jobs.KindModify,
}

func (h *Handler) dispatch(ctx context.Context, s *Session, signal string) {
	log := s.logger.With().Str("signal", signal).Logger()

	switch signal {
	case SignalScannerPage:
		if err := h.jobs.RequestInitState(); err != nil && !errors.Is(err, jobs.ErrNoActiveJob) {
			log.Warn().Err(err).Msg("Could not request initial state")
		}
		return

	case SignalKillScan:
		if !auth.Privileged(s.identity) {
			h.reject(s, signal, errForbidden)
			return
		}
		if err := h.jobs.Cancel(); err != nil {
			h.reject(s, signal, err)
			return
		}
		log.Info().Msg("Cancel requested")
		return
	}

	kind, ok := performSignals[signal]
	if !ok {
		log.Debug().Msg("Ignoring unknown signal")
		return
	}
	if !auth.Privileged(s.identity) {
		h.reject(s, signal, errForbidden)
		return
	}
	if _, err := h.jobs.Start(ctx, kind); err != nil {
		h.reject(s, signal, err)
	}
}

var errForbidden = errors.New("only the admin may control jobs")

func (h *Handler) reject(s *Session, signal string, err error) {
	code := jobs.ErrorCode(err)
	if errors.Is(err, errForbidden) {
		code = CodeForbidden
	}
	s.logger.Info().Str("signal", signal).Str("code", code).Err(err).Msg("Signal rejected")
	s.Emit(EventJobRejected, Rejection{Signal: signal, Reason: err.Error(), Code: code})
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	if len(h.allowedOrigins) > 0 {
		return h.allowedOrigins[origin] || h.allowedHosts[parsed.Host]
	}

	if parsed.Host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
