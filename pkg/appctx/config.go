// Package appctx carries process-wide services on a context.Context from
// the root command to subcommands.
package appctx

import (
	"context"

	"github.com/shelfkeeper/shelfkeeper/pkg/config"
	"github.com/shelfkeeper/shelfkeeper/pkg/event"
)

type key string

const (
	configKey key = "shelfkeeper.config.manager"
	busKey    key = "shelfkeeper.event.bus"
)

// WithConfig stores the shared config manager on context.
func WithConfig(ctx context.Context, manager *config.Manager) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey, manager)
}

// Config retrieves the shared config manager from context.
func Config(ctx context.Context) (*config.Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	mgr, ok := ctx.Value(configKey).(*config.Manager)
	return mgr, ok && mgr != nil
}

// WithBus stores the process event bus on context.
func WithBus(ctx context.Context, bus *event.Bus) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, busKey, bus)
}

// Bus returns the process event bus, or nil when none was stored.
func Bus(ctx context.Context) *event.Bus {
	if ctx == nil {
		return nil
	}
	bus, _ := ctx.Value(busKey).(*event.Bus)
	return bus
}
