package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/livesync/internal/event"
	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/metrics"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
	"github.com/roach88/livesync/internal/syncpoint"
)

// ErrClosed is returned by operations on a closed Database.
var ErrClosed = errors.New("database closed")

const tracerName = "github.com/roach88/livesync/internal/database"

// Database routes storage watches into a SyncPoint and delivers the
// resulting events.
//
// Thread-safety: all methods are safe for concurrent use.
type Database struct {
	engine store.Engine
	sync   *syncpoint.SyncPoint
	queue  *event.Queue
	pool   *ants.Pool

	ids            *event.IDGenerator
	writeIDs       WriteIDGenerator
	metrics        *metrics.Metrics
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	logger         *slog.Logger
	poolSize       int

	mu       sync.Mutex
	watchers map[string]*watcher
	closed   bool
	writes   sync.WaitGroup
}

// watcher is one storage watch shared by every registration on a query.
// sub is nil while the watch is being opened. Fields are guarded by
// Database.mu.
type watcher struct {
	q      query.Query
	sub    store.Subscription
	closed bool
}

// New creates a Database over engine. The caller keeps ownership of engine
// and closes it after the Database.
func New(engine store.Engine, opts ...Option) (*Database, error) {
	db := &Database{
		engine:   engine,
		sync:     syncpoint.New(),
		watchers: make(map[string]*watcher),
		poolSize: DefaultPoolSize,
	}
	for _, opt := range opts {
		opt(db)
	}

	if db.logger == nil {
		db.logger = slog.Default()
	}
	if db.ids == nil {
		db.ids = event.NewIDGenerator()
	}
	if db.writeIDs == nil {
		db.writeIDs = UUIDv7Generator{}
	}
	if db.metrics == nil {
		db.metrics = metrics.New()
	}
	if db.tracerProvider == nil {
		db.tracerProvider = otel.GetTracerProvider()
	}
	db.tracer = db.tracerProvider.Tracer(tracerName)

	pool, err := ants.NewPool(db.poolSize)
	if err != nil {
		return nil, fmt.Errorf("create write pool: %w", err)
	}
	db.pool = pool
	db.queue = event.NewQueue(db.logger)

	return db, nil
}

// Engine returns the storage engine.
func (db *Database) Engine() store.Engine { return db.engine }

// Metrics returns the Database's collectors.
func (db *Database) Metrics() *metrics.Metrics { return db.metrics }

// NextHandle returns a fresh registration handle.
func (db *Database) NextHandle() event.Handle { return db.ids.Next() }

// AddEventRegistration subscribes reg to q.
//
// The storage watch for q is opened on first use. If opening it fails, every
// registration on q is cancelled with the error and the error is returned.
func (db *Database) AddEventRegistration(ctx context.Context, reg event.Registration[syncpoint.Change], q query.Query) error {
	key := q.Key()

	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return ErrClosed
	}
	initial := db.sync.AddEventRegistration(reg, q)
	w, exists := db.watchers[key]
	if !exists {
		w = &watcher{q: q}
		db.watchers[key] = w
	}
	db.fireLocked(initial)
	db.mu.Unlock()

	db.updateGauges()
	if exists {
		db.logger.Debug("registration joined watcher", "handle", reg.Handle(), "query", q.String())
		return nil
	}

	sub, err := db.engine.Watch(ctx, q, db.watchFunc(w))
	if err != nil {
		db.mu.Lock()
		if db.watchers[key] == w {
			delete(db.watchers, key)
		}
		w.closed = true
		db.fireLocked(db.sync.CancelQuery(q, err))
		db.mu.Unlock()

		db.metrics.WatchErrors.Inc()
		db.updateGauges()
		db.logger.Warn("watch failed to open", "query", q.String(), "error", err)
		return fmt.Errorf("watch %s: %w", q, err)
	}

	db.mu.Lock()
	if w.closed || db.watchers[key] != w {
		// Torn down while the watch was opening.
		db.mu.Unlock()
		sub.Close()
		return nil
	}
	w.sub = sub
	db.mu.Unlock()

	db.metrics.WatchesCreated.Inc()
	db.updateGauges()
	db.logger.Debug("watcher opened", "handle", reg.Handle(), "query", q.String())
	return nil
}

// RemoveEventRegistration unsubscribes h from q. When cancelErr is non-nil
// every registration on q receives a cancel event (see
// syncpoint.View.RemoveEventRegistration). The watcher for q is closed once
// no registration remains. Unknown handles are ignored.
func (db *Database) RemoveEventRegistration(h event.Handle, q query.Query, cancelErr error) {
	key := q.Key()

	db.mu.Lock()
	db.fireLocked(db.sync.RemoveEventRegistration(h, q, cancelErr))
	var sub store.Subscription
	if !db.sync.Contains(q) {
		if w, ok := db.watchers[key]; ok {
			delete(db.watchers, key)
			w.closed = true
			sub = w.sub
		}
	}
	db.mu.Unlock()

	if sub != nil {
		sub.Close()
		db.logger.Debug("watcher closed", "query", q.String())
	}
	db.updateGauges()
}

// watchFunc bridges storage callbacks for w into the SyncPoint. Callbacks
// for a watcher that has been replaced or torn down are ignored.
func (db *Database) watchFunc(w *watcher) store.WatchFunc {
	key := w.q.Key()
	return func(records []ir.Object, diffs []store.Diff, err error) {
		db.mu.Lock()
		if w.closed || db.watchers[key] != w {
			db.mu.Unlock()
			return
		}
		var events []event.Event
		if err != nil {
			events = db.sync.CancelQuery(w.q, err)
			delete(db.watchers, key)
			w.closed = true
		} else {
			events = db.sync.ApplyChanges(diffs, records, w.q)
		}
		db.fireLocked(events)
		db.mu.Unlock()

		if err != nil {
			db.metrics.WatchErrors.Inc()
			db.updateGauges()
			db.logger.Warn("watcher failed", "query", w.q.String(), "error", err, "cancelled", len(events))
		}
	}
}

// fireLocked hands events to the delivery queue. It is the only place
// events leave the Database. Callers hold db.mu, so batches reach the queue
// in the order the SyncPoint produced them; Fire only appends and never
// runs a callback.
func (db *Database) fireLocked(events []event.Event) {
	if len(events) == 0 {
		return
	}
	for _, e := range events {
		db.metrics.EventsFired.WithLabelValues(e.Kind.String()).Inc()
	}
	if !db.queue.Fire(events...) {
		db.logger.Debug("dropped events after close", "count", len(events))
	}
}

func (db *Database) updateGauges() {
	db.mu.Lock()
	watchers := len(db.watchers)
	db.mu.Unlock()

	db.metrics.Watchers.Set(float64(watchers))
	db.metrics.Registrations.Set(float64(db.sync.RegistrationCount()))
}

// Records returns a copy of the cached result for q, if any registration
// is observing it.
func (db *Database) Records(q query.Query) ([]ir.Object, bool) {
	return db.sync.Records(q)
}

// Watchers returns the number of live storage watchers.
func (db *Database) Watchers() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.watchers)
}

// Views returns the number of queries with at least one registration.
func (db *Database) Views() int {
	return db.sync.Len()
}

// Flush blocks until every event fired so far has been delivered.
// Must not be called from a callback.
func (db *Database) Flush() {
	db.queue.Flush()
}

// Close waits for in-flight writes, closes every watcher, delivers pending
// events and stops the worker pool. Registrations are dropped without
// cancel events. Safe to call more than once.
func (db *Database) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	db.writes.Wait()

	db.mu.Lock()
	subs := make([]store.Subscription, 0, len(db.watchers))
	for key, w := range db.watchers {
		w.closed = true
		if w.sub != nil {
			subs = append(subs, w.sub)
		}
		delete(db.watchers, key)
	}
	db.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	db.queue.Close()
	db.pool.Release()
	db.updateGauges()
	return errors.Join(errs...)
}
