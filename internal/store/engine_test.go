package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
)

var favorites = query.New("Post").Where(query.Eq("isFavorite", ir.Bool(true))).Order("id", true)

func TestEngine_WatchDeliversInitialResult(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)
			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{
				post(3, "c", true), post(1, "a", true), post(2, "b", false),
			}))

			var rec recorder
			sub, err := e.Watch(bg, favorites, rec.fn)
			require.NoError(t, err)
			defer sub.Close()

			calls := rec.all()
			require.Len(t, calls, 1, "initial callback runs before Watch returns")
			assert.NoError(t, calls[0].err)
			assert.Empty(t, calls[0].diffs)
			assert.NotNil(t, calls[0].diffs)
			assert.Equal(t, []int64{1, 3}, ids(calls[0].records))
		})
	}
}

func TestEngine_WatchEmptyResult(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)

			var rec recorder
			sub, err := e.Watch(bg, favorites, rec.fn)
			require.NoError(t, err)
			defer sub.Close()

			require.Len(t, rec.all(), 1)
			assert.NotNil(t, rec.last().records)
			assert.Empty(t, rec.last().records)
		})
	}
}

func TestEngine_UpsertNotifiesWithDiffs(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)
			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{post(1, "a", true), post(3, "c", true)}))

			var rec recorder
			sub, err := e.Watch(bg, favorites, rec.fn)
			require.NoError(t, err)
			defer sub.Close()

			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{post(2, "b", true)}))
			require.Len(t, rec.all(), 2)
			assert.Equal(t, []Diff{Insert(1)}, rec.last().diffs)
			assert.Equal(t, []int64{1, 2, 3}, ids(rec.last().records))

			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{post(2, "B", true)}))
			require.Len(t, rec.all(), 3)
			assert.Equal(t, []Diff{Update(1)}, rec.last().diffs)

			// Leaving the filter is a delete from this watch's point of view.
			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{post(1, "a", false)}))
			require.Len(t, rec.all(), 4)
			assert.Equal(t, []Diff{Delete(0)}, rec.last().diffs)
		})
	}
}

func TestEngine_UnrelatedWritesAreSilent(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)

			var rec recorder
			sub, err := e.Watch(bg, favorites, rec.fn)
			require.NoError(t, err)
			defer sub.Close()

			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{post(1, "a", false)}))
			require.NoError(t, e.Upsert(bg, "Comment", []ir.Object{{"id": ir.Int(1), "postID": ir.Int(1)}}))
			assert.Len(t, rec.all(), 1)
		})
	}
}

func TestEngine_IdenticalUpsertIsSilent(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)
			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{post(1, "a", true)}))

			var rec recorder
			sub, err := e.Watch(bg, favorites, rec.fn)
			require.NoError(t, err)
			defer sub.Close()

			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{post(1, "a", true)}))
			assert.Len(t, rec.all(), 1)
		})
	}
}

func TestEngine_DeleteByQuery(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)
			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{
				post(1, "a", true), post(2, "b", true), post(3, "c", false),
			}))

			var rec recorder
			sub, err := e.Watch(bg, query.New("Post").Order("id", true), rec.fn)
			require.NoError(t, err)
			defer sub.Close()

			require.NoError(t, e.Delete(bg, favorites))
			require.Len(t, rec.all(), 2)
			assert.Equal(t, []Diff{Delete(0), Delete(1)}, rec.last().diffs)
			assert.Equal(t, []int64{3}, ids(rec.last().records))

			// Deleting nothing does not notify.
			require.NoError(t, e.Delete(bg, favorites))
			assert.Len(t, rec.all(), 2)
		})
	}
}

func TestEngine_DeleteRespectsWindow(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)
			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{
				post(1, "a", true), post(2, "b", true), post(3, "c", true),
			}))

			require.NoError(t, e.Delete(bg, query.New("Post").Order("id", false).Limit(1)))

			var rec recorder
			sub, err := e.Watch(bg, query.New("Post"), rec.fn)
			require.NoError(t, err)
			defer sub.Close()
			assert.Equal(t, []int64{1, 2}, ids(rec.last().records))
		})
	}
}

func TestEngine_SortAndWindowMatchAcrossEngines(t *testing.T) {
	q := query.New("Post").Order("title", false).StartsAt(1).Limit(2)
	results := map[string][]int64{}

	for name, newEngine := range engines() {
		e := newEngine(t)
		require.NoError(t, e.Upsert(bg, "Post", []ir.Object{
			post(1, "b", true), post(2, "d", false), post(3, "b", true), post(4, "a", true),
			{"id": ir.Int(5)},
		}))
		var rec recorder
		sub, err := e.Watch(bg, q, rec.fn)
		require.NoError(t, err)
		sub.Close()
		results[name] = ids(rec.last().records)
	}

	assert.Equal(t, []int64{1, 3}, results["memory"])
	assert.Equal(t, results["memory"], results["sqlite"])
}

func TestEngine_NullSemanticsMatchAcrossEngines(t *testing.T) {
	queries := map[string]query.Query{
		"is null":     query.New("Post").Where(query.Eq("body", ir.Null{})),
		"is not null": query.New("Post").Where(query.Ne("body", ir.Null{})),
		"not equals":  query.New("Post").Where(query.Ne("body", ir.String("x"))),
		"not in":      query.New("Post").Where(query.NoneOf("body", ir.String("x"))),
		"in":          query.New("Post").Where(query.OneOf("body", ir.String("x"), ir.String("y"))),
	}
	seed := []ir.Object{
		{"id": ir.Int(1), "body": ir.String("x")},
		{"id": ir.Int(2), "body": ir.Null{}},
		{"id": ir.Int(3)},
		{"id": ir.Int(4), "body": ir.String("y")},
	}

	for qname, q := range queries {
		t.Run(qname, func(t *testing.T) {
			results := map[string][]int64{}
			for name, newEngine := range engines() {
				e := newEngine(t)
				require.NoError(t, e.Upsert(bg, "Post", seed))
				var rec recorder
				sub, err := e.Watch(bg, q, rec.fn)
				require.NoError(t, err)
				sub.Close()
				results[name] = ids(rec.last().records)
			}
			assert.Equal(t, results["memory"], results["sqlite"])
		})
	}
}

func TestEngine_CloseSubscriptionStopsCallbacks(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)

			var rec recorder
			sub, err := e.Watch(bg, favorites, rec.fn)
			require.NoError(t, err)
			require.NoError(t, sub.Close())
			require.NoError(t, sub.Close())

			require.NoError(t, e.Upsert(bg, "Post", []ir.Object{post(1, "a", true)}))
			assert.Len(t, rec.all(), 1)
		})
	}
}

func TestEngine_UpsertRejectsMissingID(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)

			err := e.Upsert(bg, "Post", []ir.Object{{"title": ir.String("no id")}})
			require.Error(t, err)
			assert.True(t, IsWriteError(err))
			assert.ErrorIs(t, err, ErrMissingID)
		})
	}
}

func TestEngine_InvalidQueryIsReadError(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)

			var rec recorder
			_, err := e.Watch(bg, query.New("bad entity"), rec.fn)
			require.Error(t, err)
			assert.True(t, IsReadError(err))
			assert.True(t, query.IsValidationError(err))
			assert.Empty(t, rec.all())
		})
	}
}

func TestEngine_ClosedEngine(t *testing.T) {
	for name, newEngine := range engines() {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)
			require.NoError(t, e.Close())

			_, err := e.Watch(bg, favorites, func([]ir.Object, []Diff, error) {})
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, e.Upsert(bg, "Post", []ir.Object{post(1, "a", true)}), ErrClosed)
		})
	}
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(bg)
	cancel()

	m := NewMemory()
	defer m.Close()
	err := m.Upsert(ctx, "Post", []ir.Object{post(1, "a", true)})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, IsWriteError(err))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/persist.db"

	s1, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s1.Upsert(bg, "Post", []ir.Object{post(1, "a", true)}))
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()

	assert.Equal(t, int64(1), s2.seq.Load(), "write clock resumes from stored seq")

	var rec recorder
	sub, err := s2.Watch(bg, favorites, rec.fn)
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, []ir.Object{post(1, "a", true)}, rec.last().records)
}

func TestMemory_CallbackRecordsAreCopies(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	require.NoError(t, m.Upsert(bg, "Post", []ir.Object{post(1, "a", true)}))

	var rec recorder
	sub, err := m.Watch(bg, favorites, rec.fn)
	require.NoError(t, err)
	defer sub.Close()

	rec.last().records[0]["title"] = ir.String("mutated")

	var again recorder
	sub2, err := m.Watch(bg, favorites, again.fn)
	require.NoError(t, err)
	defer sub2.Close()
	assert.Equal(t, ir.String("a"), again.last().records[0]["title"])
	assert.Equal(t, 2, m.Watches())
}

func TestEngine_BooleanFieldsMatchAcrossEngines(t *testing.T) {
	queries := map[string]query.Query{
		"true":        query.New("Post").Where(query.Eq("isFavorite", ir.Bool(true))),
		"false":       query.New("Post").Where(query.Eq("isFavorite", ir.Bool(false))),
		"not true":    query.New("Post").Where(query.Ne("isFavorite", ir.Bool(true))),
		"sorted asc":  query.New("Post").Order("isFavorite", true),
		"sorted desc": query.New("Post").Order("isFavorite", false),
	}
	seed := []ir.Object{
		{"id": ir.Int(1), "isFavorite": ir.Bool(true)},
		{"id": ir.Int(2), "isFavorite": ir.Bool(false)},
		{"id": ir.Int(3)},
		{"id": ir.Int(4), "isFavorite": ir.Bool(true)},
	}

	for qname, q := range queries {
		t.Run(qname, func(t *testing.T) {
			results := map[string][]int64{}
			for name, newEngine := range engines() {
				e := newEngine(t)
				require.NoError(t, e.Upsert(bg, "Post", seed))
				var rec recorder
				sub, err := e.Watch(bg, q, rec.fn)
				require.NoError(t, err)
				sub.Close()
				results[name] = ids(rec.last().records)
			}
			assert.Equal(t, results["memory"], results["sqlite"])
		})
	}
}

// A field holding both booleans and integers is not portable: SQLite
// compares JSON true as the integer 1.
func TestEngine_MixedBoolIntFieldsDiverge(t *testing.T) {
	q := query.New("Post").Where(query.Eq("flag", ir.Bool(true)))
	seed := []ir.Object{
		{"id": ir.Int(1), "flag": ir.Int(1)},
		{"id": ir.Int(2), "flag": ir.Bool(true)},
	}

	results := map[string][]int64{}
	for name, newEngine := range engines() {
		e := newEngine(t)
		require.NoError(t, e.Upsert(bg, "Post", seed))
		var rec recorder
		sub, err := e.Watch(bg, q, rec.fn)
		require.NoError(t, err)
		sub.Close()
		results[name] = ids(rec.last().records)
	}
	assert.Equal(t, []int64{2}, results["memory"])
	assert.Equal(t, []int64{1, 2}, results["sqlite"])
}
