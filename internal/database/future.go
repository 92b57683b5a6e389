package database

import (
	"context"
	"sync"

	"github.com/roach88/livesync/internal/event"
)

// Future is the pending result of a write. It completes exactly once.
type Future struct {
	id    string
	queue *event.Queue

	once sync.Once
	done chan struct{}
	err  error

	mu        sync.Mutex
	callbacks []func(error)
}

func newFuture(id string, queue *event.Queue) *Future {
	return &Future{id: id, queue: queue, done: make(chan struct{})}
}

// failedFuture returns a Future that has already completed with err.
func failedFuture(id string, queue *event.Queue, err error) *Future {
	f := newFuture(id, queue)
	f.complete(err)
	return f
}

// ID returns the write ID attached to logs and spans.
func (f *Future) ID() string { return f.id }

// Done is closed when the write has completed.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err returns the write error once Done is closed, and nil before that.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the write completes or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnComplete registers fn to receive the write error (or nil). fn runs once,
// on the delivery queue, after any callback registered before it. If the
// queue has already been closed fn runs on the calling goroutine.
func (f *Future) OnComplete(fn func(error)) {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		f.deliver(fn)
	default:
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
	}
}

// complete resolves the future. Returns false if it was already resolved.
func (f *Future) complete(err error) bool {
	first := false
	f.once.Do(func() {
		first = true

		f.mu.Lock()
		f.err = err
		close(f.done)
		callbacks := f.callbacks
		f.callbacks = nil
		f.mu.Unlock()

		for _, fn := range callbacks {
			f.deliver(fn)
		}
	})
	return first
}

func (f *Future) deliver(fn func(error)) {
	err := f.err
	if f.queue == nil || !f.queue.Enqueue(func() { fn(err) }) {
		fn(err)
	}
}
