package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/event"
)

func tokenConfig(users ...config.UserConfig) config.AuthConfig {
	return config.AuthConfig{Mode: "token", Users: users}
}

func TestTable_Disabled(t *testing.T) {
	table := NewTable(config.AuthConfig{Mode: "none"}, zerolog.Nop())

	require.False(t, table.Enabled())
	id, ok := table.Lookup("")
	require.True(t, ok)
	require.Equal(t, Anonymous, id)
	require.True(t, Privileged(id))
}

func TestTable_TokenLookup(t *testing.T) {
	table := NewTable(tokenConfig(
		config.UserConfig{Name: "admin", Group: "admin", Token: "admin-secret"},
		config.UserConfig{Name: "alice", Group: "user", Token: "alice-secret"},
	), zerolog.Nop())

	require.True(t, table.Enabled())

	id, ok := table.Lookup("admin-secret")
	require.True(t, ok)
	require.Equal(t, Identity{Name: "admin", Group: "admin"}, id)
	require.True(t, Privileged(id))

	id, ok = table.Lookup("alice-secret")
	require.True(t, ok)
	require.Equal(t, "alice", id.Name)
	require.False(t, Privileged(id))

	_, ok = table.Lookup("wrong")
	require.False(t, ok)
	_, ok = table.Lookup("")
	require.False(t, ok)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{Name: "bob", Group: "guest"})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "bob", id.Name)
}

func TestTable_SubscribeReloadsUsers(t *testing.T) {
	table := NewTable(tokenConfig(config.UserConfig{Name: "admin", Group: "admin", Token: "old-token-1"}), zerolog.Nop())
	bus := event.New()
	table.Subscribe(bus)

	cfg := config.DefaultConfig()
	cfg.Server.Auth = tokenConfig(config.UserConfig{Name: "admin", Group: "admin", Token: "new-token-1"})
	bus.Publish(context.Background(), event.TopicConfigReloaded, cfg)
	bus.Wait()

	_, ok := table.Lookup("old-token-1")
	require.False(t, ok)
	_, ok = table.Lookup("new-token-1")
	require.True(t, ok)

	// Unrelated payloads are ignored.
	bus.Publish(context.Background(), event.TopicConfigReloaded, "garbage")
	bus.Wait()
	require.Eventually(t, func() bool {
		_, ok := table.Lookup("new-token-1")
		return ok
	}, time.Second, 10*time.Millisecond)
}
