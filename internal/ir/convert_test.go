package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

func TestEncodeDecode(t *testing.T) {
	obj, err := Encode(sample{ID: 4, Title: "x", Done: true})
	require.NoError(t, err)
	assert.Equal(t, Object{"id": Int(4), "title": String("x"), "done": Bool(true)}, obj)

	var back sample
	require.NoError(t, Decode(obj, &back))
	assert.Equal(t, sample{ID: 4, Title: "x", Done: true}, back)
}

func TestEncodeRejectsFloats(t *testing.T) {
	_, err := Encode(struct {
		Score float64 `json:"score"`
	}{Score: 1.5})
	require.Error(t, err)
}

func TestEncodeRejectsNonObjects(t *testing.T) {
	_, err := Encode([]int{1})
	require.Error(t, err)
}

func TestDecodeIntoObject(t *testing.T) {
	src := Object{"id": Int(1)}
	var dst Object
	require.NoError(t, Decode(src, &dst))
	dst["id"] = Int(2)
	assert.Equal(t, Int(1), src["id"])
}
