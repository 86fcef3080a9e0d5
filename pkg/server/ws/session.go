package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 * 1024
)

// Session is one connected client. All writes go through its queue and a
// single write pump, so frames to one client are never interleaved.
type Session struct {
	id       string
	conn     *websocket.Conn
	identity auth.Identity
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	logger   zerolog.Logger
}

func newSession(conn *websocket.Conn, identity auth.Identity, queue int, logger zerolog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, queue),
		done:     make(chan struct{}),
		logger: logger.With().
			Str("session_id", id).
			Str("user", identity.Name).
			Logger(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Identity returns the authenticated operator.
func (s *Session) Identity() auth.Identity { return s.identity }

// Emit queues an event for this client only.
func (s *Session) Emit(event string, payload any) bool {
	data, err := encode(event, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("Failed to encode event")
		return false
	}
	return s.enqueue(data)
}

// enqueue never blocks. It reports false when the session is closed or its
// queue is full.
func (s *Session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug().Err(err).Msg("WebSocket write failed")
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
