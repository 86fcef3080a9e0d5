// pkg/event/event.go
// Package event provides a small in-process publish-subscribe bus used for
// runtime notifications such as configuration reloads.
package event

import (
	"context"
	"sync"
)

// Topics published inside the server process.
const (
	// TopicConfigReloaded carries the freshly loaded config.Config.
	TopicConfigReloaded = "config.reloaded"
)

// Handler is a function that handles an event.
type Handler func(ctx context.Context, data any)

// EventBus defines the interface for an event system.
type EventBus interface {
	Subscribe(topic string, handler Handler)
	Publish(ctx context.Context, topic string, data any)
}

// Bus represents the event bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	wg          sync.WaitGroup
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string][]Handler),
	}
}

// Subscribe adds a handler for a specific topic.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish runs every handler subscribed to topic on its own goroutine.
func (b *Bus) Publish(ctx context.Context, topic string, data any) {
	b.mu.RLock()
	handlers := append([]Handler{}, b.subscribers[topic]...) // copy to avoid race
	b.mu.RUnlock()
	for _, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			h(ctx, data)
		}(handler)
	}
}

// Wait blocks until all handlers started by Publish have returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}
