package testutil

import (
	"context"
	"sync"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
)

// CountingEngine wraps a store.Engine, counts the watches opened through it
// and lets tests fail live watches on demand.
//
// Thread-safety: all methods are safe for concurrent use.
type CountingEngine struct {
	store.Engine

	mu       sync.Mutex
	opened   map[string]int
	total    int
	live     map[*countedSub]struct{}
	watchErr error
}

// NewCountingEngine wraps inner.
func NewCountingEngine(inner store.Engine) *CountingEngine {
	return &CountingEngine{
		Engine: inner,
		opened: make(map[string]int),
		live:   make(map[*countedSub]struct{}),
	}
}

type countedSub struct {
	engine *CountingEngine
	q      query.Query
	fn     store.WatchFunc
	inner  store.Subscription
	once   sync.Once
}

func (s *countedSub) Close() error {
	var err error
	s.once.Do(func() {
		s.engine.mu.Lock()
		delete(s.engine.live, s)
		s.engine.mu.Unlock()
		if s.inner != nil {
			err = s.inner.Close()
		}
	})
	return err
}

// Watch implements store.Engine.
func (e *CountingEngine) Watch(ctx context.Context, q query.Query, fn store.WatchFunc) (store.Subscription, error) {
	e.mu.Lock()
	e.total++
	e.opened[q.Key()]++
	watchErr := e.watchErr
	e.mu.Unlock()

	if watchErr != nil {
		return nil, watchErr
	}

	sub := &countedSub{engine: e, q: q, fn: fn}
	inner, err := e.Engine.Watch(ctx, q, fn)
	if err != nil {
		return nil, err
	}
	sub.inner = inner

	e.mu.Lock()
	e.live[sub] = struct{}{}
	e.mu.Unlock()
	return sub, nil
}

// SetWatchError makes every following Watch call fail with err. Pass nil to
// restore normal behaviour.
func (e *CountingEngine) SetWatchError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watchErr = err
}

// FailWatches terminates every live watch on entity by reporting err to its
// callback, the way a storage read failure would. Returns the number of
// watches failed.
func (e *CountingEngine) FailWatches(entity string, err error) int {
	e.mu.Lock()
	var doomed []*countedSub
	for s := range e.live {
		if s.q.Entity() == entity {
			doomed = append(doomed, s)
		}
	}
	e.mu.Unlock()

	for _, s := range doomed {
		s.Close()
		s.fn(nil, nil, err)
	}
	return len(doomed)
}

// Opened returns the number of watches ever opened for q.
func (e *CountingEngine) Opened(q query.Query) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opened[q.Key()]
}

// TotalOpened returns the number of watches ever opened.
func (e *CountingEngine) TotalOpened() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// Live returns the number of watches that have not been closed.
func (e *CountingEngine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// Seed upserts records into entity, failing the test on error.
func Seed(t TB, e store.Engine, entity string, records ...ir.Object) {
	t.Helper()
	if err := e.Upsert(context.Background(), entity, records); err != nil {
		t.Fatalf("seed %s: %v", entity, err)
	}
}

// TB is the subset of testing.TB used by helpers in this package.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}
