package database

import (
	"context"
	"fmt"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
)

// ApplyServerOverwrite replaces the records in scope's filter with items, as
// when a full listing arrives from a server. Records in the filter whose id
// is not among items are deleted, then items are upserted. scope's sort and
// window are ignored.
func ApplyServerOverwrite[T Entity](ctx context.Context, scope Ref[T], items []T) error {
	records, err := EncodeAll(items)
	if err != nil {
		return fmt.Errorf("server overwrite: %w", err)
	}

	ids := make([]ir.Value, 0, len(records))
	for i, r := range records {
		id, ok := store.RecordID(r)
		if !ok {
			return fmt.Errorf("server overwrite: item %d: %w", i, store.ErrMissingID)
		}
		ids = append(ids, ir.Int(id))
	}

	stale := query.New(scope.q.Entity()).Where(scope.q.Filter())
	if len(ids) > 0 {
		stale = stale.And(query.NoneOf(query.IDField, ids...))
	}
	if err := scope.db.Delete(ctx, stale).Wait(ctx); err != nil {
		return fmt.Errorf("server overwrite: delete stale: %w", err)
	}

	if len(records) == 0 {
		return nil
	}
	if err := scope.db.Update(ctx, scope.q, records).Wait(ctx); err != nil {
		return fmt.Errorf("server overwrite: upsert: %w", err)
	}
	return nil
}

// ApplyServerWrite upserts a single item received from a server.
func ApplyServerWrite[T Entity](ctx context.Context, ref Ref[T], item T) error {
	if err := ref.Update(ctx, item).Wait(ctx); err != nil {
		return fmt.Errorf("server write: %w", err)
	}
	return nil
}
