package query

import (
	"fmt"
	"slices"

	"github.com/roach88/livesync/internal/ir"
)

// Spec is the declarative form of a Query used by scenario files and the
// CLI. Each map contributes one predicate per field; fields are conjoined
// in sorted order (Where, Not, In, NotIn), so a given Spec always builds
// the same Query.
type Spec struct {
	Entity string           `yaml:"entity" json:"entity"`
	Where  map[string]any   `yaml:"where,omitempty" json:"where,omitempty"`
	Not    map[string]any   `yaml:"not,omitempty" json:"not,omitempty"`
	In     map[string][]any `yaml:"in,omitempty" json:"in,omitempty"`
	NotIn  map[string][]any `yaml:"not_in,omitempty" json:"not_in,omitempty"`
	Order  []SortSpec       `yaml:"order,omitempty" json:"order,omitempty"`
	Limit  *int             `yaml:"limit,omitempty" json:"limit,omitempty"`
	Offset int              `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// SortSpec is one sort key of a Spec.
type SortSpec struct {
	Field string `yaml:"field" json:"field"`
	Desc  bool   `yaml:"desc,omitempty" json:"desc,omitempty"`
}

// Build converts the spec to a validated Query.
func (s Spec) Build() (Query, error) {
	var preds []Predicate

	for _, field := range sortedKeys(s.Where) {
		v, err := ir.FromGo(s.Where[field])
		if err != nil {
			return Query{}, fmt.Errorf("where.%s: %w", field, err)
		}
		preds = append(preds, Eq(field, v))
	}
	for _, field := range sortedKeys(s.Not) {
		v, err := ir.FromGo(s.Not[field])
		if err != nil {
			return Query{}, fmt.Errorf("not.%s: %w", field, err)
		}
		preds = append(preds, Ne(field, v))
	}
	for _, field := range sortedKeys(s.In) {
		vs, err := values(s.In[field])
		if err != nil {
			return Query{}, fmt.Errorf("in.%s: %w", field, err)
		}
		preds = append(preds, OneOf(field, vs...))
	}
	for _, field := range sortedKeys(s.NotIn) {
		vs, err := values(s.NotIn[field])
		if err != nil {
			return Query{}, fmt.Errorf("not_in.%s: %w", field, err)
		}
		preds = append(preds, NoneOf(field, vs...))
	}

	q := New(s.Entity)
	if len(preds) > 0 {
		q = q.Where(AllOf(preds...))
	}
	for _, k := range s.Order {
		q = q.Order(k.Field, !k.Desc)
	}
	if s.Limit != nil {
		q = q.Limit(*s.Limit)
	}
	if s.Offset != 0 {
		q = q.StartsAt(s.Offset)
	}

	if err := Validate(q); err != nil {
		return Query{}, err
	}
	return q, nil
}

func values(raw []any) ([]ir.Value, error) {
	out := make([]ir.Value, len(raw))
	for i, r := range raw {
		v, err := ir.FromGo(r)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
