package notification

import (
	"context"
	"log"
)

// WorkerPool runs push event handlers off the transport goroutines.
type WorkerPool struct {
	size   int
	jobs   chan Event
	handle func(ctx context.Context, ev Event)
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, handle func(ctx context.Context, ev Event)) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:   size,
		jobs:   make(chan Event, size), // Buffered channel
		handle: handle,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Push worker %d started", id)
	for {
		select {
		case ev := <-wp.jobs:
			log.Printf("Push worker %d handling %s for stall %d (%s)", id, ev.Kind, ev.StallID, ev.Origin)
			wp.handle(ctx, ev)
		case <-ctx.Done():
			log.Printf("Push worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an event, blocking while the pool is saturated.
func (wp *WorkerPool) Dispatch(ctx context.Context, ev Event) error {
	select {
	case wp.jobs <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}
