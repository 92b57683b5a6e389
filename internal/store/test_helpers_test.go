package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/roach88/livesync/internal/ir"
)

// createTestSQLite opens a fresh database in a temp dir.
func createTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// engines returns a constructor per Engine implementation so contract
// tests run against both.
func engines() map[string]func(t *testing.T) Engine {
	return map[string]func(t *testing.T) Engine{
		"memory": func(t *testing.T) Engine {
			m := NewMemory()
			t.Cleanup(func() { m.Close() })
			return m
		},
		"sqlite": func(t *testing.T) Engine {
			return createTestSQLite(t)
		},
	}
}

func post(id int64, title string, fav bool) ir.Object {
	return ir.Object{
		"id":         ir.Int(id),
		"title":      ir.String(title),
		"isFavorite": ir.Bool(fav),
	}
}

// watchCall is one recorded WatchFunc invocation.
type watchCall struct {
	records []ir.Object
	diffs   []Diff
	err     error
}

// recorder collects WatchFunc invocations.
type recorder struct {
	mu    sync.Mutex
	calls []watchCall
}

func (r *recorder) fn(records []ir.Object, diffs []Diff, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, watchCall{records: records, diffs: diffs, err: err})
}

func (r *recorder) all() []watchCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]watchCall(nil), r.calls...)
}

func (r *recorder) last() watchCall {
	calls := r.all()
	return calls[len(calls)-1]
}

func ids(records []ir.Object) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i], _ = RecordID(r)
	}
	return out
}

var bg = context.Background()
