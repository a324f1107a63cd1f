package eventbus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marhaba/internal/domain"
)

func newTestBus(opts ...Option) *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func newEvent(t domain.EventType) domain.Event {
	return domain.NewEvent(t, "sess-1", nil)
}

func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventAgentCallFailed, func(_ context.Context, e domain.Event) {
		if e.Type == domain.EventAgentCallFailed {
			got.Add(1)
		}
	})

	bus.Publish(context.Background(), newEvent(domain.EventAgentCallFailed))
	bus.Publish(context.Background(), newEvent(domain.EventAgentCallCompleted))
	bus.Close()

	assert.Equal(t, int32(1), got.Load())
}

func TestSubscribeAllKeepsOrder(t *testing.T) {
	bus := newTestBus()

	var mu sync.Mutex
	var seen []domain.EventType
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	order := []domain.EventType{
		domain.EventOrchestrationStarted,
		domain.EventAgentCallCompleted,
		domain.EventAgentCallFailed,
		domain.EventOrchestrationCompleted,
	}
	for _, typ := range order {
		bus.Publish(context.Background(), newEvent(typ))
	}
	bus.Close()

	assert.Equal(t, order, seen)
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var got atomic.Int32
	unsub := bus.Subscribe(domain.EventConversationCreated, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})
	unsub()
	unsub() // idempotent

	bus.Publish(context.Background(), newEvent(domain.EventConversationCreated))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), got.Load())
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.SubscribeAll(func(context.Context, domain.Event) { panic("boom") })
	bus.SubscribeAll(func(context.Context, domain.Event) { got.Add(1) })

	bus.Publish(context.Background(), newEvent(domain.EventAgentProbed))
	bus.Publish(context.Background(), newEvent(domain.EventAgentProbed))
	bus.Close()

	assert.Equal(t, int32(2), got.Load())
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := newTestBus(WithQueueSize(1))

	block := make(chan struct{})
	bus.SubscribeAll(func(context.Context, domain.Event) { <-block })

	start := time.Now()
	for range 10 {
		bus.Publish(context.Background(), newEvent(domain.EventAgentProbed))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Positive(t, bus.Dropped())

	close(block)
	bus.Close()
}

func TestHandlerContextOutlivesPublisher(t *testing.T) {
	bus := newTestBus()

	type key struct{}
	done := make(chan error, 1)
	bus.SubscribeAll(func(ctx context.Context, _ domain.Event) {
		time.Sleep(10 * time.Millisecond)
		if ctx.Value(key{}) != "v" {
			done <- assert.AnError
			return
		}
		done <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "v"))
	bus.Publish(ctx, newEvent(domain.EventOrchestrationStarted))
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
	bus.Close()
}

func TestCloseIsIdempotentAndStopsPublishing(t *testing.T) {
	bus := newTestBus()
	var got atomic.Int32
	bus.SubscribeAll(func(context.Context, domain.Event) { got.Add(1) })

	bus.Close()
	bus.Close()
	bus.Publish(context.Background(), newEvent(domain.EventAgentProbed))

	assert.Equal(t, int32(0), got.Load())
	assert.NotPanics(t, func() { bus.SubscribeAll(func(context.Context, domain.Event) {})() })
}

func TestConcurrentPublish(t *testing.T) {
	bus := newTestBus(WithQueueSize(1000))
	var got atomic.Int32
	bus.SubscribeAll(func(context.Context, domain.Event) { got.Add(1) })

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				bus.Publish(context.Background(), newEvent(domain.EventAgentCallCompleted))
			}
		}()
	}
	wg.Wait()
	bus.Close()

	assert.Equal(t, int32(500), got.Load())
}
