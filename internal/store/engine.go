package store

import (
	"context"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
)

// WatchFunc receives the current result set and the diffs since the
// previous invocation. When err is non-nil the watch is over.
type WatchFunc func(records []ir.Object, diffs []Diff, err error)

// Subscription is a live watch. Close is idempotent.
type Subscription interface {
	Close() error
}

// Engine is the storage primitive the sync layer depends on.
// Implemented by Memory and SQLite.
type Engine interface {
	// Watch starts a live query. The first callback runs before Watch returns.
	Watch(ctx context.Context, q query.Query, fn WatchFunc) (Subscription, error)

	// Upsert inserts or replaces records of one entity by id.
	Upsert(ctx context.Context, entity string, records []ir.Object) error

	// Delete removes every record in the query's result set.
	Delete(ctx context.Context, q query.Query) error

	// Close releases resources. Live watches receive no further callbacks.
	Close() error
}

// RecordID extracts the integer primary key of a record.
func RecordID(record ir.Object) (int64, bool) {
	id, ok := record[query.IDField].(ir.Int)
	return int64(id), ok
}

func cloneRecords(records []ir.Object) []ir.Object {
	out := make([]ir.Object, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
