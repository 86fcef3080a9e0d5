package ws

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry tracks connected sessions and fans events out to them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	logger   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[*Session]struct{}),
		logger:   logger.With().Str("component", "ws").Logger(),
	}
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s] = struct{}{}
	n := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info().Str("session_id", s.id).Str("user", s.identity.Name).Int("sessions", n).Msg("Client connected")
}

// Remove unregisters and closes a session. Removing twice is a no-op.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	_, ok := r.sessions[s]
	delete(r.sessions, s)
	n := len(r.sessions)
	r.mu.Unlock()

	s.close()
	if ok {
		r.logger.Info().Str("session_id", s.id).Int("sessions", n).Msg("Client disconnected")
	}
}

// Broadcast sends an event to every session and returns how many accepted
// it. Sessions whose queue is full are disconnected.
func (r *Registry) Broadcast(event string, payload any) int {
	data, err := encode(event, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("event", event).Msg("Failed to encode broadcast")
		return 0
	}

	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, s := range sessions {
		if s.enqueue(data) {
			delivered++
			continue
		}
		r.logger.Warn().Str("session_id", s.id).Str("event", event).Msg("Client too slow, disconnecting")
		r.Remove(s)
	}
	return delivered
}

// Count returns the number of connected sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll disconnects every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[*Session]struct{})
	r.mu.Unlock()

	for s := range sessions {
		s.close()
	}
}
