package query

import (
	"slices"

	"github.com/roach88/livesync/internal/ir"
)

// field reads a record field, treating absence as null.
func field(record ir.Object, name string) ir.Value {
	v, ok := record[name]
	if !ok || v == nil {
		return ir.Null{}
	}
	return v
}

// Match reports whether record satisfies the query filter.
func (q Query) Match(record ir.Object) bool {
	return matches(q.filter, record)
}

func matches(p Predicate, record ir.Object) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		return ir.Equal(field(record, pred.Field), literal(pred.Value))
	case NotEquals:
		return !ir.Equal(field(record, pred.Field), literal(pred.Value))
	case In:
		v := field(record, pred.Field)
		return slices.ContainsFunc(pred.Values, func(lit ir.Value) bool {
			return ir.Equal(v, literal(lit))
		})
	case NotIn:
		v := field(record, pred.Field)
		return !slices.ContainsFunc(pred.Values, func(lit ir.Value) bool {
			return ir.Equal(v, literal(lit))
		})
	case And:
		for _, sub := range pred.Predicates {
			if !matches(sub, record) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two records by the sort keys, falling back to ascending
// primary key so the order is total.
func (q Query) Compare(a, b ir.Object) int {
	for _, k := range q.sort {
		c := ir.Compare(field(a, k.Field), field(b, k.Field))
		if k.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return ir.Compare(field(a, IDField), field(b, IDField))
}

// Apply filters, sorts and windows records. The input is not modified.
func (q Query) Apply(records []ir.Object) []ir.Object {
	out := make([]ir.Object, 0, len(records))
	for _, r := range records {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, q.Compare)

	if q.offset > 0 {
		if q.offset >= len(out) {
			return []ir.Object{}
		}
		out = out[q.offset:]
	}
	if q.hasLimit && q.limit >= 0 && q.limit < len(out) {
		out = out[:q.limit]
	}
	return out
}
