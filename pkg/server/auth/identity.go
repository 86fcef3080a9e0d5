// Package auth resolves bearer tokens to operator identities.
package auth

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/event"
)

// AdminName is the identity name allowed to run maintenance jobs.
const AdminName = "admin"

// Identity is the authenticated operator behind a request or session.
type Identity struct {
	Name  string `json:"name"`
	Group string `json:"group"`
}

// Anonymous is the identity attached when authentication is disabled.
var Anonymous = Identity{Name: AdminName, Group: "admin"}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Table maps bearer tokens to identities. It is safe for concurrent use and
// can be refreshed when the configuration file changes.
type Table struct {
	mu      sync.RWMutex
	enabled bool
	tokens  map[string]Identity
	logger  zerolog.Logger
}

// NewTable builds a table from the auth configuration.
func NewTable(cfg config.AuthConfig, logger zerolog.Logger) *Table {
	t := &Table{logger: logger.With().Str("component", "auth").Logger()}
	t.Update(cfg)
	return t
}

// Update replaces the known users.
func (t *Table) Update(cfg config.AuthConfig) {
	tokens := make(map[string]Identity, len(cfg.Users))
	for _, u := range cfg.Users {
		tokens[u.Token] = Identity{Name: u.Name, Group: u.Group}
	}

	t.mu.Lock()
	t.enabled = cfg.Mode == "token"
	t.tokens = tokens
	t.mu.Unlock()

	t.logger.Debug().
		Bool("enabled", cfg.Mode == "token").
		Int("users", len(tokens)).
		Msg("Auth table updated")
}

// Enabled reports whether tokens are required.
func (t *Table) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Lookup resolves a token. With authentication disabled every caller is
// Anonymous.
func (t *Table) Lookup(token string) (Identity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.enabled {
		return Anonymous, true
	}
	if token == "" {
		return Identity{}, false
	}
	id, ok := t.tokens[token]
	return id, ok
}

// Subscribe keeps the table in sync with configuration reloads.
func (t *Table) Subscribe(bus event.EventBus) {
	bus.Subscribe(event.TopicConfigReloaded, func(_ context.Context, data any) {
		cfg, ok := data.(config.Config)
		if !ok {
			return
		}
		t.Update(cfg.Server.Auth)
		t.logger.Info().Int("users", len(cfg.Server.Auth.Users)).Msg("Auth users reloaded")
	})
}

// Privileged reports whether id may start or cancel jobs.
func Privileged(id Identity) bool {
	return id.Name == AdminName
}
