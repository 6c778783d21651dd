package notification

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"washroom-tracker-client/config"
)

// ErrDuplicate is returned by Publish for a message already seen inside the
// de-duplication window.
var ErrDuplicate = errors.New("notification: duplicate push message")

// Handler receives decoded push events.
type Handler func(ctx context.Context, ev Event)

// Bridge fans push messages from any transport out to subscribed handlers.
type Bridge struct {
	pool  *WorkerPool
	dedup *cache.Cache

	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
}

// NewBridge creates a bridge. Call Start before publishing.
func NewBridge(cfg config.PushConfig) *Bridge {
	window := cfg.DedupWindow
	if window <= 0 {
		window = 10 * time.Second
	}
	b := &Bridge{
		dedup:    cache.New(window, 2*window),
		handlers: make(map[int]Handler),
	}
	b.pool = NewWorkerPool(cfg.Workers, b.deliver)
	return b
}

// Start launches the workers; they stop when ctx is done.
func (b *Bridge) Start(ctx context.Context) {
	b.pool.Start(ctx)
}

// OnPushMessage subscribes h to every push event. The returned func
// unsubscribes it.
func (b *Bridge) OnPushMessage(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.handlers[id] = h
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish decodes a raw push payload and queues it for the handlers.
func (b *Bridge) Publish(ctx context.Context, origin Origin, raw []byte) (Event, error) {
	ev, err := Decode(origin, raw)
	if err != nil {
		return Event{}, err
	}
	if err := b.dedup.Add(ev.key(), struct{}{}, cache.DefaultExpiration); err != nil {
		log.Printf("Dropping duplicate push %s for stall %d", ev.Kind, ev.StallID)
		return ev, ErrDuplicate
	}
	if err := b.pool.Dispatch(ctx, ev); err != nil {
		b.dedup.Delete(ev.key())
		return ev, err
	}
	return ev, nil
}

func (b *Bridge) deliver(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		log.Printf("No handler subscribed; push %s dropped", ev.Kind)
		return
	}
	for _, h := range handlers {
		h(ctx, ev)
	}
}
