// Package eventbus is an in-process publish/subscribe bus for orchestration
// and conversation events.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"marhaba/internal/domain"
)

const defaultQueueSize = 64

type queued struct {
	ctx   context.Context
	event domain.Event
}

// subscriber owns a queue and one worker goroutine, so each subscriber sees
// events in publish order while a slow subscriber never blocks publishers.
type subscriber struct {
	id        uint64
	eventType domain.EventType // "" receives every event
	handler   domain.EventHandler
	queue     chan queued
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueSize sets the per-subscriber buffer. Events beyond it are dropped.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// Bus is a goroutine-safe domain.EventBus.
type Bus struct {
	mu        sync.RWMutex
	subs      []*subscriber
	nextID    atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	wg        sync.WaitGroup
	queueSize int
	logger    *slog.Logger
}

// New creates an event bus.
func New(logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{queueSize: defaultQueueSize, logger: logger}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish enqueues event for every matching subscriber without blocking.
// Handlers run detached from ctx cancellation but keep its values.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}
	q := queued{ctx: context.WithoutCancel(ctx), event: event}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.eventType != "" && s.eventType != event.Type {
			continue
		}
		select {
		case s.queue <- q:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped, subscriber queue full",
				"event", string(event.Type),
				"subscriber", s.id,
			)
		}
	}
}

// Subscribe registers a handler for one event type and returns its unsubscribe func.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.add(eventType, handler)
}

// SubscribeAll registers a handler for every event and returns its unsubscribe func.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.add("", handler)
}

func (b *Bus) add(eventType domain.EventType, handler domain.EventHandler) func() {
	s := &subscriber{
		id:        b.nextID.Add(1),
		eventType: eventType,
		handler:   handler,
		queue:     make(chan queued, b.queueSize),
	}

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return func() {}
	}
	b.subs = append(b.subs, s)
	b.wg.Add(1)
	b.mu.Unlock()

	go b.run(s)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s.id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s.queue)
			return
		}
	}
}

func (b *Bus) run(s *subscriber) {
	defer b.wg.Done()
	for q := range s.queue {
		b.invoke(s, q)
	}
}

func (b *Bus) invoke(s *subscriber, q queued) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(q.event.Type),
				"subscriber", s.id,
				"panic", r,
			)
		}
	}()
	s.handler(q.ctx, q.event)
}

// Dropped reports how many deliveries were discarded because a queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops accepting events, lets every subscriber drain its queue and
// waits for the workers to exit. It is idempotent.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.mu.Lock()
	for _, s := range b.subs {
		close(s.queue)
	}
	b.subs = nil
	b.mu.Unlock()
	b.wg.Wait()
}

var _ domain.EventBus = (*Bus)(nil)
