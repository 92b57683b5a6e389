package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
)

func TestCountingEngine_CountsAndCloses(t *testing.T) {
	e := NewCountingEngine(store.NewMemory())
	q := query.New("Post")

	sub, err := e.Watch(context.Background(), q, func([]ir.Object, []store.Diff, error) {})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Opened(q))
	assert.Equal(t, 1, e.Live())

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 0, e.Live())
	assert.Equal(t, 1, e.TotalOpened())
}

func TestCountingEngine_FailWatches(t *testing.T) {
	e := NewCountingEngine(store.NewMemory())
	boom := errors.New("boom")

	var got []error
	fn := func(_ []ir.Object, _ []store.Diff, err error) {
		if err != nil {
			got = append(got, err)
		}
	}
	_, err := e.Watch(context.Background(), query.New("Post"), fn)
	require.NoError(t, err)
	_, err = e.Watch(context.Background(), query.New("Comment"), fn)
	require.NoError(t, err)

	assert.Equal(t, 1, e.FailWatches("Post", boom))
	assert.Equal(t, []error{boom}, got)
	assert.Equal(t, 1, e.Live())

	Seed(t, e, "Post", ir.Object{"id": ir.Int(1)})
	assert.Len(t, got, 1, "failed watch receives nothing further")
}

func TestCountingEngine_SetWatchError(t *testing.T) {
	e := NewCountingEngine(store.NewMemory())
	boom := errors.New("boom")
	e.SetWatchError(boom)

	_, err := e.Watch(context.Background(), query.New("Post"), func([]ir.Object, []store.Diff, error) {})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, e.Live())

	e.SetWatchError(nil)
	_, err = e.Watch(context.Background(), query.New("Post"), func([]ir.Object, []store.Diff, error) {})
	assert.NoError(t, err)
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Data("a", "data", []int64{1, 2}, []store.Diff{store.Insert(1)})
	c.Cancel("b", errors.New("gone"))
	c.Data("a", "valueAdded", nil, nil)

	assert.Equal(t, []string{"data", "cancel", "valueAdded"}, c.Events())
	assert.Len(t, c.For("a"), 2)
	assert.Equal(t, []string{
		"a data ids=[1 2] diffs=[insert(1)]",
		`b cancel error="gone"`,
		"a valueAdded ids=[] diffs=[]",
	}, c.Lines())

	c.Reset()
	assert.Equal(t, 0, c.Len())
}
