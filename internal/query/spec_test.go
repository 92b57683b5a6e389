package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/livesync/internal/ir"
)

func TestSpec_Build(t *testing.T) {
	var spec Spec
	require.NoError(t, yaml.Unmarshal([]byte(`
entity: Post
where:
  isFavorite: true
  userID: 1
not_in:
  id: [3, 4]
order:
  - field: id
limit: 10
offset: 2
`), &spec))

	q, err := spec.Build()
	require.NoError(t, err)

	want := New("Post").
		Where(AllOf(
			Eq("isFavorite", ir.Bool(true)),
			Eq("userID", ir.Int(1)),
			NoneOf("id", ir.Int(3), ir.Int(4)),
		)).
		Order("id", true).
		Limit(10).
		StartsAt(2)
	assert.True(t, want.Equal(q), "got %s", q)
}

func TestSpec_BuildIsDeterministic(t *testing.T) {
	spec := Spec{
		Entity: "Post",
		Where:  map[string]any{"a": 1, "b": 2, "c": 3, "d": "x", "e": false},
	}
	first, err := spec.Build()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := spec.Build()
		require.NoError(t, err)
		require.Equal(t, first.Key(), again.Key())
	}
}

func TestSpec_BuildUnfiltered(t *testing.T) {
	q, err := Spec{Entity: "Comment", Order: []SortSpec{{Field: "id", Desc: true}}}.Build()
	require.NoError(t, err)
	assert.Nil(t, q.Filter())
	assert.Equal(t, "Comment order by id desc", q.String())
}

func TestSpec_BuildNullEquality(t *testing.T) {
	q, err := Spec{Entity: "Post", Where: map[string]any{"title": nil}}.Build()
	require.NoError(t, err)
	assert.Equal(t, Eq("title", ir.Null{}), q.Filter())
}

func TestSpec_BuildErrors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"bad entity", Spec{Entity: "posts; drop"}},
		{"float literal", Spec{Entity: "Post", Where: map[string]any{"score": 1.5}}},
		{"empty in list", Spec{Entity: "Post", In: map[string][]any{"id": {}}}},
		{"null in list", Spec{Entity: "Post", NotIn: map[string][]any{"id": {nil}}}},
		{"negative offset", Spec{Entity: "Post", Offset: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Build()
			require.Error(t, err)
		})
	}
}
