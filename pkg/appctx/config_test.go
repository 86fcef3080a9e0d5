package appctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/event"
)

func TestConfig(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		manager := config.NewManager()
		got, ok := Config(WithConfig(context.Background(), manager))
		require.True(t, ok)
		require.Same(t, manager, got)
	})

	t.Run("nil parent context", func(t *testing.T) {
		manager := config.NewManager()
		//nolint:staticcheck
		got, ok := Config(WithConfig(nil, manager))
		require.True(t, ok)
		require.Same(t, manager, got)
	})

	t.Run("missing or unusable values", func(t *testing.T) {
		//nolint:staticcheck
		_, ok := Config(nil)
		require.False(t, ok)

		_, ok = Config(context.Background())
		require.False(t, ok)

		_, ok = Config(context.WithValue(context.Background(), configKey, (*config.Manager)(nil)))
		require.False(t, ok)

		_, ok = Config(context.WithValue(context.Background(), configKey, "not a manager"))
		require.False(t, ok)
	})
}

func TestBus(t *testing.T) {
	bus := event.New()
	ctx := WithBus(WithConfig(context.Background(), config.NewManager()), bus)

	require.Same(t, bus, Bus(ctx))
	_, ok := Config(ctx)
	require.True(t, ok, "bus must not shadow the config manager")

	require.Nil(t, Bus(context.Background()))
	//nolint:staticcheck
	require.Nil(t, Bus(nil))
}
