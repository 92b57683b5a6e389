package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
	"github.com/roach88/livesync/internal/testutil"
)

func sampleTrace() []testutil.Delivery {
	return []testutil.Delivery{
		{Observer: "favs", Event: "data", IDs: []int64{1, 2}, Diffs: []string{}},
		{Observer: "favs", Event: "valueAdded", IDs: []int64{1, 2, 3}, Diffs: []string{"insert(2)"}},
		{Observer: "favs", Event: "data", IDs: []int64{1, 2, 3}, Diffs: []string{"insert(2)"}},
		{Observer: "other", Event: "cancel", Error: "gone"},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Observer: "favs", Event: "valueAdded"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Observer: "favs", Event: "data", IDs: []int64{1, 2, 3}}))

	err := assertTraceContains(trace, Assertion{Observer: "favs", Event: "data", IDs: []int64{3}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, err.Error(), "favs data ids=[3]")
	assert.Contains(t, err.Error(), `[4] other cancel error="gone"`)
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Lines: []string{
		"favs data ids=[1 2]",
		"other cancel",
	}}))

	err := assertTraceOrder(trace, Assertion{Lines: []string{
		"other cancel",
		"favs valueAdded",
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no match for "favs valueAdded" after the first 1`)
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Observer: "favs", Event: "data", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Observer: "favs", Event: "valueMoved", Count: 0}))

	err := assertTraceCount(trace, Assertion{Observer: "other", Event: "cancel", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestAssertFinalState(t *testing.T) {
	ctx := context.Background()
	eng := store.NewMemory()
	defer eng.Close()
	testutil.Seed(t, eng, "Post",
		ir.Object{"id": ir.Int(2), "isFavorite": ir.Bool(true)},
		ir.Object{"id": ir.Int(1), "isFavorite": ir.Bool(true)},
		ir.Object{"id": ir.Int(3), "isFavorite": ir.Bool(false)},
	)

	favs := &query.Spec{Entity: "Post", Where: map[string]any{"isFavorite": true}, Order: []query.SortSpec{{Field: "id"}}}
	assert.NoError(t, assertFinalState(ctx, eng, Assertion{Query: favs, IDs: []int64{1, 2}}))
	assert.Error(t, assertFinalState(ctx, eng, Assertion{Query: favs, IDs: []int64{2, 1}}))

	none := &query.Spec{Entity: "Comment"}
	assert.NoError(t, assertFinalState(ctx, eng, Assertion{Query: none}))
	assert.Equal(t, 0, eng.Watches(), "the lookup watch is closed")
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Observer: "favs", Event: "data", Count: 2},
		{Type: AssertFinalState, Query: &query.Spec{Entity: "Post"}},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "final_state requires store context")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
