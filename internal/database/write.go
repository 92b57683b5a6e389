package database

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
)

const (
	opUpdate = "update"
	opDelete = "delete"
)

// Update upserts records into q's entity. The returned Future completes with
// the storage error, or nil. Events reach observers through their watchers,
// not through the write.
func (db *Database) Update(ctx context.Context, q query.Query, records []ir.Object) *Future {
	batch := make([]ir.Object, len(records))
	for i, r := range records {
		batch[i] = r.Clone()
	}
	return db.submit(ctx, opUpdate, q, len(batch), func(ctx context.Context) error {
		return db.engine.Upsert(ctx, q.Entity(), batch)
	})
}

// Delete removes every record in q's result, window included.
func (db *Database) Delete(ctx context.Context, q query.Query) *Future {
	return db.submit(ctx, opDelete, q, 0, func(ctx context.Context) error {
		return db.engine.Delete(ctx, q)
	})
}

// submit runs write on the pool inside a span and resolves the Future.
func (db *Database) submit(ctx context.Context, op string, q query.Query, n int, write func(context.Context) error) *Future {
	id := db.writeIDs.Generate()

	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return failedFuture(id, db.queue, ErrClosed)
	}
	db.writes.Add(1)
	db.mu.Unlock()

	f := newFuture(id, db.queue)
	task := func() {
		defer db.writes.Done()
		f.complete(db.runWrite(ctx, op, id, q, n, write))
	}
	if err := db.pool.Submit(task); err != nil {
		db.writes.Done()
		f.complete(fmt.Errorf("%s %s: submit: %w", op, q.Entity(), err))
	}
	return f
}

func (db *Database) runWrite(ctx context.Context, op, id string, q query.Query, n int, write func(context.Context) error) (err error) {
	ctx, span := db.tracer.Start(ctx, "livesync."+op, trace.WithAttributes(
		attribute.String("livesync.write_id", id),
		attribute.String("livesync.entity", q.Entity()),
		attribute.String("livesync.query", q.String()),
		attribute.Int("livesync.records", n),
	))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %s: panic: %v", op, q.Entity(), r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			db.logger.Warn("write failed", "op", op, "write_id", id, "entity", q.Entity(), "error", err)
		} else {
			db.logger.Debug("write complete", "op", op, "write_id", id, "entity", q.Entity(), "records", n)
		}
		db.metrics.ObserveWrite(op, time.Since(start).Seconds(), err)
		span.End()
	}()

	return write(ctx)
}
