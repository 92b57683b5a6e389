package query

import (
	"slices"

	"github.com/roach88/livesync/internal/ir"
)

// Predicate represents a filter condition on a record.
//
// This is a sealed interface - only types in this package implement it.
// A nil Predicate is always true.
type Predicate interface {
	predicateNode()
}

// Equals matches records whose field equals a literal value.
//
//	Equals{Field: "isFavorite", Value: ir.Bool(true)}
//
// compiles to
//
//	json_extract(doc, '$.isFavorite') IS ?
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// NotEquals matches records whose field differs from the literal,
// including records where the field is absent.
type NotEquals struct {
	Field string
	Value ir.Value
}

func (NotEquals) predicateNode() {}

// In matches records whose field equals any of the literals.
// An In with no values is rejected by Validate.
type In struct {
	Field  string
	Values []ir.Value
}

func (In) predicateNode() {}

// NotIn matches records whose field equals none of the literals.
type NotIn struct {
	Field  string
	Values []ir.Value
}

func (NotIn) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Eq is shorthand for Equals{Field: field, Value: v}.
func Eq(field string, v ir.Value) Equals {
	return Equals{Field: field, Value: v}
}

// Ne is shorthand for NotEquals{Field: field, Value: v}.
func Ne(field string, v ir.Value) NotEquals {
	return NotEquals{Field: field, Value: v}
}

// OneOf is shorthand for In{Field: field, Values: vs}.
func OneOf(field string, vs ...ir.Value) In {
	return In{Field: field, Values: vs}
}

// NoneOf is shorthand for NotIn{Field: field, Values: vs}.
func NoneOf(field string, vs ...ir.Value) NotIn {
	return NotIn{Field: field, Values: vs}
}

// AllOf is shorthand for And{Predicates: ps}.
func AllOf(ps ...Predicate) And {
	return And{Predicates: ps}
}

// Normalize returns the canonical form of p. Equivalent predicates that
// differ only in nesting, trivially-true operands or literal-list order
// normalise to the same value. Returns nil for an always-true predicate.
// Conjunct order is kept: it is part of the query's identity, so
// Where(a).And(b) and Where(b).And(a) are different queries.
func Normalize(p Predicate) Predicate {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		return Equals{Field: pred.Field, Value: literal(pred.Value)}
	case NotEquals:
		return NotEquals{Field: pred.Field, Value: literal(pred.Value)}
	case In:
		return In{Field: pred.Field, Values: normalizeList(pred.Values)}
	case NotIn:
		return NotIn{Field: pred.Field, Values: normalizeList(pred.Values)}
	case And:
		var flat []Predicate
		for _, sub := range pred.Predicates {
			switch n := Normalize(sub).(type) {
			case nil:
			case And:
				flat = append(flat, n.Predicates...)
			default:
				flat = append(flat, n)
			}
		}
		switch len(flat) {
		case 0:
			return nil
		case 1:
			return flat[0]
		default:
			return And{Predicates: flat}
		}
	default:
		return p
	}
}

// literal maps an untyped nil to Null.
func literal(v ir.Value) ir.Value {
	if v == nil {
		return ir.Null{}
	}
	return v
}

func normalizeList(vs []ir.Value) []ir.Value {
	out := make([]ir.Value, 0, len(vs))
	for _, v := range vs {
		out = append(out, literal(v))
	}
	slices.SortFunc(out, ir.Compare)
	return slices.CompactFunc(out, ir.Equal)
}
