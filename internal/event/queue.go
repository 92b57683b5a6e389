package event

import (
	"fmt"
	"log/slog"
	"sync"
)

// Queue is the delivery executor: a thread-safe FIFO of callbacks drained
// by one goroutine.
//
// The queue is unbounded so firing never blocks the goroutine that collected
// the events, even when a callback is slow.
//
// A panicking callback is recovered and logged; later callbacks still run.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // signals task availability (buffered, size 1)
	done   chan struct{}

	logger *slog.Logger
}

// NewQueue creates a queue and starts its delivery goroutine.
// A nil logger uses slog.Default().
func NewQueue(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		tasks:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	go q.run()
	return q
}

// Enqueue adds fn to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *Queue) Enqueue(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.tasks = append(q.tasks, fn)

	// Non-blocking: a buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// Fire enqueues events in order. Returns false if the queue is closed, in
// which case none of them will run.
func (q *Queue) Fire(events ...Event) bool {
	if len(events) == 0 {
		return true
	}
	batch := make([]func(), len(events))
	for i, e := range events {
		batch[i] = e.Fire
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, batch...)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Flush blocks until every callback enqueued before the call has run.
// Must not be called from a callback running on this queue.
func (q *Queue) Flush() {
	marker := make(chan struct{})
	if !q.Enqueue(func() { close(marker) }) {
		<-q.done
		return
	}
	<-marker
}

// Len returns the number of callbacks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops accepting callbacks, runs those already queued and waits for
// the delivery goroutine to exit. Safe to call more than once.
// Must not be called from a callback running on this queue.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.signal) // wakes the delivery goroutine
	}
	q.mu.Unlock()

	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		for {
			fn, ok := q.tryDequeue()
			if !ok {
				break
			}
			q.call(fn)
		}

		q.mu.Lock()
		finished := q.closed && len(q.tasks) == 0
		q.mu.Unlock()
		if finished {
			return
		}

		<-q.signal
	}
}

// tryDequeue removes the front callback without blocking.
func (q *Queue) tryDequeue() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	fn := q.tasks[0]

	// Clear the slot so the backing array does not pin the closure.
	q.tasks[0] = nil

	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}

	return fn, true
}

func (q *Queue) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("delivery callback panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
