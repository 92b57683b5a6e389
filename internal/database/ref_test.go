package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/syncpoint"
	"github.com/roach88/livesync/internal/testutil"
)

func TestRef_BuildersDoNotMutate(t *testing.T) {
	db, _ := newTestDB(t)
	base := NewRef[testPost](db)
	narrowed := base.Where(query.Eq("isFavorite", ir.Bool(true))).Order("title", false).Limit(5).StartsAt(2)

	assert.True(t, base.Query().Equal(query.New("Post")))
	assert.Equal(t, "Post where isFavorite = true order by title desc limit 5 offset 2", narrowed.Query().String())
	assert.True(t, RefFor[testPost](db, narrowed.Query()).Query().Equal(narrowed.Query()))
}

func TestRef_ObserveDecodesItems(t *testing.T) {
	db, engine := newTestDB(t)
	testutil.Seed(t, engine, "Post", post(1, "a", true), post(2, "b", false))

	var got [][]testPost
	NewRef[testPost](db).Order("id", true).Observe(syncpoint.Data, func(s Snapshot[testPost]) {
		got = append(got, s.Items)
	}, nil)
	db.Flush()

	require.Len(t, got, 1)
	assert.Equal(t, []testPost{{ID: 1, Title: "a", IsFavorite: true}, {ID: 2, Title: "b"}}, got[0])
}

func TestRef_ObserveOnce(t *testing.T) {
	db, engine := newTestDB(t)
	testutil.Seed(t, engine, "Post", post(1, "a", true))

	calls := 0
	ref := NewRef[testPost](db).Where(query.Eq("isFavorite", ir.Bool(true)))
	ref.ObserveOnce(syncpoint.Data, func(Snapshot[testPost]) { calls++ }, nil)
	db.Flush()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, db.Watchers(), "registration removed itself after the first delivery")

	require.NoError(t, ref.Update(bg, testPost{ID: 2, IsFavorite: true}).Wait(bg))
	db.Flush()
	assert.Equal(t, 1, calls)
}

func TestRef_ObserveOnceWaitsForMatchingType(t *testing.T) {
	db, _ := newTestDB(t)
	ref := NewRef[testPost](db)

	var added []int64
	ref.ObserveOnce(syncpoint.ValueAdded, func(s Snapshot[testPost]) { added = postIDs(s.Items) }, nil)
	db.Flush()
	assert.Nil(t, added, "initial data does not count")
	assert.Equal(t, 1, db.Watchers())

	require.NoError(t, ref.Update(bg, testPost{ID: 7}).Wait(bg))
	require.NoError(t, ref.Update(bg, testPost{ID: 8}).Wait(bg))
	db.Flush()

	assert.Equal(t, []int64{7}, added)
	assert.Equal(t, 0, db.Watchers())
}

func TestRef_RemoveObserver(t *testing.T) {
	db, _ := newTestDB(t)
	ref := NewRef[testPost](db)

	calls := 0
	h := ref.Observe(syncpoint.Data, func(Snapshot[testPost]) { calls++ }, nil)
	db.Flush()
	ref.RemoveObserver(h)
	ref.RemoveObserver(h)

	require.NoError(t, ref.Update(bg, testPost{ID: 1}).Wait(bg))
	db.Flush()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, db.Watchers())
}

func TestRef_CancelCallback(t *testing.T) {
	db, engine := newTestDB(t)
	ref := NewRef[testPost](db)

	var cancelled []error
	ref.Observe(syncpoint.Data, func(Snapshot[testPost]) {}, func(err error) { cancelled = append(cancelled, err) })
	engine.FailWatches("Post", errRead)
	db.Flush()

	require.Len(t, cancelled, 1)
	assert.ErrorIs(t, cancelled[0], errRead)
}

func TestRef_DeleteUsesWindow(t *testing.T) {
	db, engine := newTestDB(t)
	testutil.Seed(t, engine, "Post", post(1, "a", true), post(2, "b", true), post(3, "c", true))

	ref := NewRef[testPost](db)
	require.NoError(t, ref.Order("id", false).Limit(2).Delete(bg).Wait(bg))

	var ids []int64
	ref.Observe(syncpoint.Data, func(s Snapshot[testPost]) { ids = postIDs(s.Items) }, nil)
	db.Flush()
	assert.Equal(t, []int64{1}, ids)
}

func TestEncodeDecodeAll(t *testing.T) {
	records, err := EncodeAll([]testPost{{ID: 1, Title: "a"}})
	require.NoError(t, err)
	assert.Equal(t, []ir.Object{{"id": ir.Int(1), "title": ir.String("a"), "isFavorite": ir.Bool(false)}}, records)

	_, err = DecodeAll[testPost]([]ir.Object{{"id": ir.String("not a number")}})
	assert.ErrorContains(t, err, "record 0")
}
