package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shelfkeeper/shelfkeeper/pkg/server/ws"
)

const writeTimeout = 10 * time.Second

// ErrStopWatching can be returned by a Watch handler to end the watch
// without error.
var ErrStopWatching = errors.New("stop watching")

// Session is an open WebSocket connection to the server.
type Session struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	greeting ws.Greeting
	stop     func() bool
}

// Dial opens a WebSocket session and waits for the server greeting. The
// connection is closed when ctx ends.
func (c *Client) Dial(ctx context.Context) (*Session, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u = *u.JoinPath("/ws")
	if c.token != "" {
		q := u.Query()
		q.Set("token", c.token)
		u.RawQuery = q.Encode()
	}

	dialer := *websocket.DefaultDialer
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("websocket upgrade failed: %v", err)}
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	s := &Session{conn: conn}
	s.stop = context.AfterFunc(ctx, func() { _ = s.Close() })

	env, err := s.Next()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("waiting for greeting: %w", err)
	}
	if env.Event != ws.EventSuccess {
		_ = s.Close()
		return nil, fmt.Errorf("unexpected first event %q", env.Event)
	}
	if err := json.Unmarshal(env.Payload, &s.greeting); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("decode greeting: %w", err)
	}

	c.logger.Debug().Str("user", s.greeting.User.Name).Bool("auth", s.greeting.Auth).Msg("WebSocket session established")
	return s, nil
}

// Greeting returns the server's welcome message.
func (s *Session) Greeting() ws.Greeting { return s.greeting }

// Send writes a signal to the server.
func (s *Session) Send(signal string, payload any) error {
	env := ws.Envelope{Event: signal}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Payload = data
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(env)
}

// Next blocks until the next frame arrives.
func (s *Session) Next() (ws.Envelope, error) {
	var env ws.Envelope
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return ws.Envelope{}, err
		}
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			continue
		}
		return env, nil
	}
}

// Close ends the session.
func (s *Session) Close() error {
	if s.stop != nil {
		s.stop()
	}
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.conn.Close()
}

// Watch opens a session, asks for the current job state and passes every
// event to handle until ctx ends or handle returns an error.
// ErrStopWatching ends the watch cleanly.
func (c *Client) Watch(ctx context.Context, handle func(ws.Envelope) error) error {
	s, err := c.Dial(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Send(ws.SignalScannerPage, nil); err != nil {
		return fmt.Errorf("request job state: %w", err)
	}
	return s.Follow(ctx, handle)
}

// Follow reads events until ctx ends or handle returns an error.
func (s *Session) Follow(ctx context.Context, handle func(ws.Envelope) error) error {
	for {
		env, err := s.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := handle(env); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return nil
			}
			return err
		}
	}
}
