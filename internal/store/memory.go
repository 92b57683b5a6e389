package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
)

// Memory is a map-backed Engine. Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[int64]ir.Object
	closed bool
	hub    *hub
}

// NewMemory creates an empty in-memory engine.
func NewMemory() *Memory {
	m := &Memory{tables: make(map[string]map[int64]ir.Object)}
	m.hub = newHub(m.fetch)
	return m
}

func (m *Memory) fetch(ctx context.Context, q query.Query) ([]ir.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	table := m.tables[q.Entity()]
	all := make([]ir.Object, 0, len(table))
	for _, r := range table {
		all = append(all, r)
	}
	return cloneRecords(q.Apply(all)), nil
}

// Watch implements Engine.
func (m *Memory) Watch(ctx context.Context, q query.Query, fn WatchFunc) (Subscription, error) {
	if err := query.Validate(q); err != nil {
		return nil, readError(q.Entity(), err)
	}
	return m.hub.watch(ctx, q, fn)
}

// Upsert implements Engine.
func (m *Memory) Upsert(ctx context.Context, entity string, records []ir.Object) error {
	if err := ctx.Err(); err != nil {
		return writeError(entity, err)
	}
	if err := query.Validate(query.New(entity)); err != nil {
		return writeError(entity, err)
	}
	ids := make([]int64, len(records))
	for i, r := range records {
		id, ok := RecordID(r)
		if !ok {
			return writeError(entity, fmt.Errorf("record %d: %w", i, ErrMissingID))
		}
		ids[i] = id
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return writeError(entity, ErrClosed)
	}
	table, ok := m.tables[entity]
	if !ok {
		table = make(map[int64]ir.Object)
		m.tables[entity] = table
	}
	for i, r := range records {
		table[ids[i]] = r.Clone()
	}
	m.mu.Unlock()

	m.hub.refresh(ctx, entity)
	return nil
}

// Delete implements Engine.
func (m *Memory) Delete(ctx context.Context, q query.Query) error {
	if err := ctx.Err(); err != nil {
		return writeError(q.Entity(), err)
	}
	if err := query.Validate(q); err != nil {
		return writeError(q.Entity(), err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return writeError(q.Entity(), ErrClosed)
	}
	table := m.tables[q.Entity()]
	all := make([]ir.Object, 0, len(table))
	for _, r := range table {
		all = append(all, r)
	}
	doomed := q.Apply(all)
	for _, r := range doomed {
		id, _ := RecordID(r)
		delete(table, id)
	}
	m.mu.Unlock()

	if len(doomed) > 0 {
		m.hub.refresh(ctx, q.Entity())
	}
	return nil
}

// Len returns the number of records stored for entity.
func (m *Memory) Len(entity string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[entity])
}

// Watches returns the number of live watches.
func (m *Memory) Watches() int {
	return m.hub.count()
}

// Close implements Engine.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.hub.closeAll()
	return nil
}
