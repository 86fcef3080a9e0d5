package config

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/pkg/event"
)

type recordingBus struct {
	mu      sync.Mutex
	configs []Config
}

func (b *recordingBus) Subscribe(string, event.Handler) {}

func (b *recordingBus) Publish(_ context.Context, topic string, data any) {
	if topic != event.TopicConfigReloaded {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configs = append(b.configs, data.(Config))
}

func (b *recordingBus) last() (Config, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.configs) == 0 {
		return Config{}, 0
	}
	return b.configs[len(b.configs)-1], len(b.configs)
}

func startWatcher(t *testing.T, content string) (string, *Manager, *recordingBus) {
	t.Helper()

	path := writeConfigFile(t, content)
	manager := NewManager()
	require.NoError(t, manager.Load(nil, path))

	bus := &recordingBus{}
	w, err := NewWatcher(manager, bus, zerolog.Nop())
	require.NoError(t, err)
	w.debounceDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give fsnotify time to register the directory.
	time.Sleep(50 * time.Millisecond)
	return path, manager, bus
}

func TestWatcher_PublishesReloadedConfig(t *testing.T) {
	path, manager, bus := startWatcher(t, "library:\n  root: /before\n")

	require.NoError(t, os.WriteFile(path, []byte("library:\n  root: /after\n"), 0o644))

	require.Eventually(t, func() bool {
		cfg, n := bus.last()
		return n > 0 && cfg.Library.Root == "/after"
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "/after", manager.Get().Library.Root)
}

func TestWatcher_InvalidConfigKeepsPrevious(t *testing.T) {
	path, manager, bus := startWatcher(t, "server:\n  port: 9000\n")

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o644))

	// Wait well past the debounce; the invalid file must not be published.
	time.Sleep(300 * time.Millisecond)
	_, n := bus.last()
	require.Zero(t, n)
	require.Equal(t, 9000, manager.Get().Server.Port)
}
