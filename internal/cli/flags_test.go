package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livesync/internal/query"
)

func TestQueryFlags_Spec(t *testing.T) {
	f := queryFlags{
		Where:  []string{"isFavorite=true", "userID=2"},
		Not:    []string{"title=null"},
		In:     []string{"id=1,2,3"},
		NotIn:  []string{"body=spam,ham"},
		Order:  []string{"userID:desc", "id"},
		Limit:  10,
		Offset: 5,
	}

	s, err := f.spec("Post")
	require.NoError(t, err)

	limit := 10
	assert.Equal(t, query.Spec{
		Entity: "Post",
		Where:  map[string]any{"isFavorite": true, "userID": 2},
		Not:    map[string]any{"title": nil},
		In:     map[string][]any{"id": {1, 2, 3}},
		NotIn:  map[string][]any{"body": {"spam", "ham"}},
		Order:  []query.SortSpec{{Field: "userID", Desc: true}, {Field: "id"}},
		Limit:  &limit,
		Offset: 5,
	}, s)
}

func TestQueryFlags_Unbounded(t *testing.T) {
	f := queryFlags{Limit: -1}
	assert.False(t, f.filtered())

	s, err := f.spec("Comment")
	require.NoError(t, err)
	assert.Nil(t, s.Limit)
	assert.Nil(t, s.Where)
	assert.Nil(t, s.In)
}

func TestQueryFlags_Filtered(t *testing.T) {
	assert.True(t, (&queryFlags{Where: []string{"id=1"}}).filtered())
	assert.True(t, (&queryFlags{NotIn: []string{"id=1"}}).filtered())
	assert.False(t, (&queryFlags{Order: []string{"id"}, Limit: 1}).filtered())
}

func TestQueryFlags_Errors(t *testing.T) {
	tests := []struct {
		name    string
		flags   queryFlags
		wantErr string
	}{
		{"where without value", queryFlags{Where: []string{"id"}}, "--where \"id\": want field=value"},
		{"where without field", queryFlags{Where: []string{"=1"}}, "want field=value"},
		{"in without values", queryFlags{In: []string{"id="}}, "--in \"id=\": want field=v1,v2"},
		{"not-in without field", queryFlags{NotIn: []string{"1,2"}}, "--not-in"},
		{"bad direction", queryFlags{Order: []string{"id:up"}}, "direction must be asc or desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.spec("Post")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQueryFlags_BuildValidates(t *testing.T) {
	f := queryFlags{Limit: -1, Offset: -2}
	_, err := f.build("Post")
	require.Error(t, err)

	f = queryFlags{Where: []string{"isFavorite=true"}, Order: []string{"id"}, Limit: -1}
	q, err := f.build("Post")
	require.NoError(t, err)
	assert.Equal(t, "Post", q.Entity())
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"42", 42},
		{"-7", -7},
		{"true", true},
		{"false", false},
		{"null", nil},
		{"", nil},
		{"hello", "hello"},
		{"1.5", "1.5"},
		{"[1, 2]", "[1, 2]"},
		{`"quoted"`, "quoted"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseScalar(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
