package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/livesync/internal/ir"
)

// IDField is the primary key every record carries. It is the final sort
// tiebreaker and the identity used to compute diffs.
const IDField = "id"

// SortKey orders results by one field.
type SortKey struct {
	Field      string
	Descending bool
}

// Query is an immutable description of a filtered, ordered, windowed
// result set over one entity. The zero value is not usable; start from New.
//
// Builder methods return a modified copy and leave the receiver untouched:
//
//	favs := query.New("Post").
//		Where(query.Eq("isFavorite", ir.Bool(true))).
//		Order("id", true)
type Query struct {
	entity   string
	filter   Predicate
	sort     []SortKey
	limit    int
	hasLimit bool
	offset   int
}

// New returns an unfiltered, unordered, unbounded query over entity.
func New(entity string) Query {
	return Query{entity: entity}
}

// Where replaces the filter predicate.
func (q Query) Where(p Predicate) Query {
	out := q.clone()
	out.filter = Normalize(p)
	return out
}

// And conjoins p with the current filter.
func (q Query) And(p Predicate) Query {
	out := q.clone()
	out.filter = Normalize(And{Predicates: []Predicate{q.filter, p}})
	return out
}

// Order appends a sort key. Earlier keys take precedence.
func (q Query) Order(field string, ascending bool) Query {
	out := q.clone()
	out.sort = append(out.sort, SortKey{Field: field, Descending: !ascending})
	return out
}

// Limit bounds the number of results.
func (q Query) Limit(n int) Query {
	out := q.clone()
	out.limit = n
	out.hasLimit = true
	return out
}

// StartsAt skips the first n results.
func (q Query) StartsAt(n int) Query {
	out := q.clone()
	out.offset = n
	return out
}

func (q Query) clone() Query {
	out := q
	out.sort = slices.Clone(q.sort)
	return out
}

// Entity returns the entity (table) the query reads.
func (q Query) Entity() string { return q.entity }

// Filter returns the normalised filter, or nil when unfiltered.
func (q Query) Filter() Predicate { return q.filter }

// SortKeys returns a copy of the sort keys.
func (q Query) SortKeys() []SortKey { return slices.Clone(q.sort) }

// MaxResults returns the limit and whether one was set.
func (q Query) MaxResults() (int, bool) { return q.limit, q.hasLimit }

// Offset returns the number of leading results skipped.
func (q Query) Offset() int { return q.offset }

// Key returns the structural identity of the query.
func (q Query) Key() string {
	return ir.MustQueryKey(q.descriptor())
}

// Equal reports whether q and other describe the same result set.
func (q Query) Equal(other Query) bool {
	return q.Key() == other.Key()
}

// descriptor renders the query as a null-free ir.Object suitable for
// canonical encoding.
func (q Query) descriptor() ir.Object {
	d := ir.Object{"entity": ir.String(q.entity)}
	if q.filter != nil {
		d["filter"] = predicateDescriptor(q.filter)
	}
	if len(q.sort) > 0 {
		keys := make(ir.Array, len(q.sort))
		for i, k := range q.sort {
			keys[i] = ir.Object{"field": ir.String(k.Field), "desc": ir.Bool(k.Descending)}
		}
		d["sort"] = keys
	}
	if q.hasLimit {
		d["limit"] = ir.Int(q.limit)
	}
	if q.offset != 0 {
		d["offset"] = ir.Int(q.offset)
	}
	return d
}

func predicateDescriptor(p Predicate) ir.Object {
	switch pred := p.(type) {
	case Equals:
		return ir.Object{"op": ir.String("eq"), "field": ir.String(pred.Field), "value": literalDescriptor(pred.Value)}
	case NotEquals:
		return ir.Object{"op": ir.String("ne"), "field": ir.String(pred.Field), "value": literalDescriptor(pred.Value)}
	case In:
		return ir.Object{"op": ir.String("in"), "field": ir.String(pred.Field), "values": listDescriptor(pred.Values)}
	case NotIn:
		return ir.Object{"op": ir.String("nin"), "field": ir.String(pred.Field), "values": listDescriptor(pred.Values)}
	case And:
		args := make(ir.Array, len(pred.Predicates))
		for i, sub := range pred.Predicates {
			args[i] = predicateDescriptor(sub)
		}
		return ir.Object{"op": ir.String("and"), "args": args}
	default:
		return ir.Object{"op": ir.String(fmt.Sprintf("%T", p))}
	}
}

// literalDescriptor wraps values canonical JSON cannot carry directly.
func literalDescriptor(v ir.Value) ir.Value {
	switch val := v.(type) {
	case nil, ir.Null:
		return ir.Object{"null": ir.Bool(true)}
	case ir.Array:
		return listDescriptor(val)
	case ir.Object:
		inner := make(ir.Object, len(val))
		for k, elem := range val {
			inner[k] = literalDescriptor(elem)
		}
		return ir.Object{"object": inner}
	default:
		return v
	}
}

func listDescriptor(vs []ir.Value) ir.Array {
	out := make(ir.Array, len(vs))
	for i, v := range vs {
		out[i] = literalDescriptor(v)
	}
	return out
}

// String renders a readable form for logs and CLI output.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.entity)
	if q.filter != nil {
		b.WriteString(" where ")
		b.WriteString(predicateString(q.filter))
	}
	if len(q.sort) > 0 {
		b.WriteString(" order by ")
		for i, k := range q.sort {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k.Field)
			if k.Descending {
				b.WriteString(" desc")
			} else {
				b.WriteString(" asc")
			}
		}
	}
	if q.hasLimit {
		fmt.Fprintf(&b, " limit %d", q.limit)
	}
	if q.offset != 0 {
		fmt.Fprintf(&b, " offset %d", q.offset)
	}
	return b.String()
}

func predicateString(p Predicate) string {
	switch pred := p.(type) {
	case Equals:
		return pred.Field + " = " + literalString(pred.Value)
	case NotEquals:
		return pred.Field + " != " + literalString(pred.Value)
	case In:
		return pred.Field + " in " + listString(pred.Values)
	case NotIn:
		return pred.Field + " not in " + listString(pred.Values)
	case And:
		parts := make([]string, len(pred.Predicates))
		for i, sub := range pred.Predicates {
			parts[i] = predicateString(sub)
		}
		return strings.Join(parts, " and ")
	default:
		return fmt.Sprintf("%T", p)
	}
}

func literalString(v ir.Value) string {
	b, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func listString(vs []ir.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = literalString(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
