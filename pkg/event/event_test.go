package event

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := New()

	var calls atomic.Int32
	var got atomic.Value
	bus.Subscribe(TopicConfigReloaded, func(_ context.Context, data any) {
		calls.Add(1)
		got.Store(data)
	})
	bus.Subscribe(TopicConfigReloaded, func(_ context.Context, _ any) {
		calls.Add(1)
	})

	bus.Publish(context.Background(), TopicConfigReloaded, "payload")
	bus.Wait()

	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, "payload", got.Load())
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := New()
	bus.Publish(context.Background(), "nobody.listens", 1)
	bus.Wait()
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	bus := New()

	var calls atomic.Int32
	bus.Subscribe("a", func(context.Context, any) { calls.Add(1) })

	bus.Publish(context.Background(), "b", nil)
	bus.Wait()

	require.Zero(t, calls.Load())
}
