package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/livesync/internal/ir"
)

func TestPredicate_Sealed(t *testing.T) {
	preds := []Predicate{
		Equals{Field: "a", Value: ir.Int(1)},
		NotEquals{Field: "a", Value: ir.Int(1)},
		In{Field: "a", Values: []ir.Value{ir.Int(1)}},
		NotIn{Field: "a", Values: []ir.Value{ir.Int(1)}},
		And{},
	}
	for _, p := range preds {
		switch p.(type) {
		case Equals, NotEquals, In, NotIn, And:
		default:
			t.Fatalf("unexpected predicate type %T", p)
		}
	}
}

func TestNormalize_FlattensAnd(t *testing.T) {
	a := Eq("a", ir.Int(1))
	b := Eq("b", ir.Int(2))
	c := Eq("c", ir.Int(3))

	got := Normalize(AllOf(a, AllOf(b, AllOf(c))))
	assert.Equal(t, And{Predicates: []Predicate{a, b, c}}, got)
}

func TestNormalize_DropsTrivialOperands(t *testing.T) {
	a := Eq("a", ir.Int(1))

	assert.Nil(t, Normalize(nil))
	assert.Nil(t, Normalize(And{}))
	assert.Nil(t, Normalize(AllOf(nil, And{})))
	assert.Equal(t, a, Normalize(AllOf(nil, a, And{})))
}

func TestNormalize_SortsAndDedupesLists(t *testing.T) {
	got := Normalize(OneOf("id", ir.Int(3), ir.Int(1), ir.Int(3), ir.Int(2)))
	assert.Equal(t, In{Field: "id", Values: []ir.Value{ir.Int(1), ir.Int(2), ir.Int(3)}}, got)

	got = Normalize(NoneOf("tag", ir.String("b"), ir.String("a")))
	assert.Equal(t, NotIn{Field: "tag", Values: []ir.Value{ir.String("a"), ir.String("b")}}, got)
}

func TestNormalize_NilLiteralBecomesNull(t *testing.T) {
	assert.Equal(t, Equals{Field: "a", Value: ir.Null{}}, Normalize(Equals{Field: "a"}))
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	values := []ir.Value{ir.Int(2), ir.Int(1)}
	Normalize(In{Field: "id", Values: values})
	assert.Equal(t, []ir.Value{ir.Int(2), ir.Int(1)}, values)
}
