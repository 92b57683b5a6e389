package database

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/livesync/internal/event"
	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
	"github.com/roach88/livesync/internal/syncpoint"
	"github.com/roach88/livesync/internal/testutil"
)

type testPost struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	IsFavorite bool   `json:"isFavorite"`
}

func (testPost) Entity() string { return "Post" }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestDB returns a Database over a counting in-memory engine.
func newTestDB(t *testing.T, opts ...Option) (*Database, *testutil.CountingEngine) {
	t.Helper()
	mem := store.NewMemory()
	engine := testutil.NewCountingEngine(mem)

	opts = append([]Option{WithLogger(discard), WithWriteIDGenerator(NewFixedGenerator("w"))}, opts...)
	db, err := New(engine, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		mem.Close()
	})
	return db, engine
}

func favorites() query.Query {
	return query.New("Post").Where(query.Eq("isFavorite", ir.Bool(true))).Order("id", true)
}

func post(id int64, title string, fav bool) ir.Object {
	return ir.Object{"id": ir.Int(id), "title": ir.String(title), "isFavorite": ir.Bool(fav)}
}

// observe registers a collector-backed registration for the given types.
func observe(t *testing.T, db *Database, c *testutil.Collector, name string, q query.Query, types ...syncpoint.EventType) event.Handle {
	t.Helper()
	h := db.NextHandle()
	cbs := make(map[syncpoint.EventType]syncpoint.Callback, len(types))
	for _, typ := range types {
		cbs[typ] = func(s syncpoint.Snapshot) { c.Data(name, typ.String(), s.IDs(), s.Diffs()) }
	}
	reg := syncpoint.NewRegistration(h, cbs, c.CancelFunc(name))
	if err := db.AddEventRegistration(bg, reg, q); err != nil {
		t.Fatalf("AddEventRegistration(%s) failed: %v", name, err)
	}
	return h
}
