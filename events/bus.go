package events

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"warden/observability/logging"
)

// Handler receives delivered events
type Handler func(ctx context.Context, e Event)

// Publisher is the publish side of the bus, which is all the request
// pipeline needs.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process broadcast registry. Publish never blocks on
// subscribers and never fails: every delivery runs on its own goroutine and
// a panicking subscriber is recovered and logged.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind][]subscription
	nextID uint64
	closed bool
	wg     sync.WaitGroup
	logger *logging.Logger
}

// NewBus creates an event bus; logger may be nil
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bus{
		subs:   make(map[Kind][]subscription),
		logger: logger.WithModule("events"),
	}
}

// Subscribe registers h for events of kind and all kinds below it. The
// returned function removes the subscription.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[kind]
		for i, s := range subs {
			if s.id == id {
				b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e asynchronously to every matching subscriber. Events
// published after Close are dropped.
func (b *Bus) Publish(ctx context.Context, e Event) {
	// deliveries outlive the request that raised them
	ctx = context.WithoutCancel(ctx)

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Debug("Dropping event published after close", "kind", e.Kind.String())
		return
	}

	var handlers []Handler
	for _, kind := range e.Kind.Lineage() {
		for _, s := range b.subs[kind] {
			handlers = append(handlers, s.handler)
		}
	}

	// Add under the read lock, so Close cannot start waiting in between
	for _, h := range handlers {
		b.wg.Add(1)
		go b.deliver(ctx, h, e)
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, e Event) {
	defer b.wg.Done()

	var pc panics.Catcher
	pc.Try(func() { h(ctx, e) })
	if r := pc.Recovered(); r != nil {
		b.logger.Error("Event subscriber panicked", "kind", e.Kind.String(), logging.Err(r.AsError()))
	}
}

// Wait blocks until all deliveries started so far have finished. It must
// not run concurrently with Publish; use Close on shutdown.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Close stops accepting events and waits for pending deliveries
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
}

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) {}
