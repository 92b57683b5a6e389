package database

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/roach88/livesync/internal/event"
	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
	"github.com/roach88/livesync/internal/syncpoint"
)

// Entity is implemented by record types stored through a Ref. The result
// must be an identifier. Records are encoded with their json tags and must
// carry an integer "id" field.
type Entity interface {
	Entity() string
}

// Snapshot is a decoded result delivered to a typed callback.
type Snapshot[T any] struct {
	Query query.Query
	Items []T
	Diffs []store.Diff
}

// Ref is an immutable, typed handle on a query. Builder methods return a new
// Ref and never modify the receiver.
type Ref[T Entity] struct {
	db *Database
	q  query.Query
}

// NewRef returns a Ref over every record of T's entity.
func NewRef[T Entity](db *Database) Ref[T] {
	var zero T
	return Ref[T]{db: db, q: query.New(zero.Entity())}
}

// RefFor returns a Ref over q. q's entity should be T's entity.
func RefFor[T Entity](db *Database, q query.Query) Ref[T] {
	return Ref[T]{db: db, q: q}
}

// Query returns the underlying query.
func (r Ref[T]) Query() query.Query { return r.q }

// Where replaces the filter.
func (r Ref[T]) Where(p query.Predicate) Ref[T] { return Ref[T]{db: r.db, q: r.q.Where(p)} }

// And narrows the filter.
func (r Ref[T]) And(p query.Predicate) Ref[T] { return Ref[T]{db: r.db, q: r.q.And(p)} }

// Order appends a sort key.
func (r Ref[T]) Order(field string, ascending bool) Ref[T] {
	return Ref[T]{db: r.db, q: r.q.Order(field, ascending)}
}

// Limit bounds the result size.
func (r Ref[T]) Limit(n int) Ref[T] { return Ref[T]{db: r.db, q: r.q.Limit(n)} }

// StartsAt skips the first n results.
func (r Ref[T]) StartsAt(n int) Ref[T] { return Ref[T]{db: r.db, q: r.q.StartsAt(n)} }

// Observe calls fn for every change of type t on the query, on the delivery
// queue. cancel, which may be nil, receives the error if the watch fails;
// no further callbacks follow it.
func (r Ref[T]) Observe(t syncpoint.EventType, fn func(Snapshot[T]), cancel func(error)) event.Handle {
	return r.ObserveChildren(map[syncpoint.EventType]func(Snapshot[T]){t: fn}, cancel)
}

// ObserveChildren registers one callback per event type under a single
// handle.
func (r Ref[T]) ObserveChildren(fns map[syncpoint.EventType]func(Snapshot[T]), cancel func(error)) event.Handle {
	h := r.db.NextHandle()
	cbs := make(map[syncpoint.EventType]syncpoint.Callback, len(fns))
	for t, fn := range fns {
		if fn == nil {
			continue
		}
		cbs[t] = r.decoding(h, fn)
	}
	r.register(syncpoint.NewRegistration(h, cbs, cancel))
	return h
}

// ObserveOnce delivers the first change of type t and then removes the
// registration. A cancellation before that ends it as well.
func (r Ref[T]) ObserveOnce(t syncpoint.EventType, fn func(Snapshot[T]), cancel func(error)) event.Handle {
	h := r.db.NextHandle()
	var fired atomic.Bool
	decode := r.decoding(h, fn)
	once := func(s syncpoint.Snapshot) {
		if fired.Swap(true) {
			return
		}
		decode(s)
		r.db.RemoveEventRegistration(h, r.q, nil)
	}
	r.register(syncpoint.NewValueRegistration(h, t, once, cancel))
	return h
}

// RemoveObserver removes h from this query. Removing an unknown or already
// removed handle is a no-op.
func (r Ref[T]) RemoveObserver(h event.Handle) {
	r.db.RemoveEventRegistration(h, r.q, nil)
}

// Update upserts items into the entity.
func (r Ref[T]) Update(ctx context.Context, items ...T) *Future {
	records, err := EncodeAll(items)
	if err != nil {
		return failedFuture(r.db.writeIDs.Generate(), r.db.queue, err)
	}
	return r.db.Update(ctx, r.q, records)
}

// Delete removes every record in the query's result.
func (r Ref[T]) Delete(ctx context.Context) *Future {
	return r.db.Delete(ctx, r.q)
}

// register adds reg. Open failures have already been delivered to the
// registration's cancel callback, so they are only logged here.
func (r Ref[T]) register(reg *syncpoint.Registration) {
	if err := r.db.AddEventRegistration(context.Background(), reg, r.q); err != nil {
		r.db.logger.Debug("observe failed", "handle", reg.Handle(), "error", err)
	}
}

// decoding adapts a typed callback to the untyped snapshot. Records that
// cannot be decoded are logged and the delivery is skipped.
func (r Ref[T]) decoding(h event.Handle, fn func(Snapshot[T])) syncpoint.Callback {
	return func(s syncpoint.Snapshot) {
		items, err := DecodeAll[T](s.Records())
		if err != nil {
			r.db.logger.Error("decode snapshot", "handle", h, "query", s.Query().String(), "error", err)
			return
		}
		fn(Snapshot[T]{Query: s.Query(), Items: items, Diffs: s.Diffs()})
	}
}

// EncodeAll converts items to records.
func EncodeAll[T any](items []T) ([]ir.Object, error) {
	records := make([]ir.Object, len(items))
	for i, item := range items {
		obj, err := ir.Encode(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		records[i] = obj
	}
	return records, nil
}

// DecodeAll converts records to items.
func DecodeAll[T any](records []ir.Object) ([]T, error) {
	items := make([]T, len(records))
	for i, r := range records {
		if err := ir.Decode(r, &items[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return items, nil
}
