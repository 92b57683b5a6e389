package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/livesync/internal/query"
)

// queryFlags are the flags that describe a query on the command line.
type queryFlags struct {
	Where  []string // field=value
	Not    []string // field=value
	In     []string // field=v1,v2
	NotIn  []string // field=v1,v2
	Order  []string // field or field:desc
	Limit  int      // negative means unbounded
	Offset int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.Where, "where", nil, "equality filter field=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.Not, "not", nil, "inequality filter field=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.In, "in", nil, "membership filter field=v1,v2 (repeatable)")
	cmd.Flags().StringArrayVar(&f.NotIn, "not-in", nil, "exclusion filter field=v1,v2 (repeatable)")
	cmd.Flags().StringArrayVar(&f.Order, "order", nil, "sort key field or field:desc (repeatable)")
	cmd.Flags().IntVar(&f.Limit, "limit", -1, "maximum number of results")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "number of results to skip")
}

// filtered reports whether any predicate flag is set.
func (f *queryFlags) filtered() bool {
	return len(f.Where)+len(f.Not)+len(f.In)+len(f.NotIn) > 0
}

// spec converts the flags to a query spec over entity.
func (f *queryFlags) spec(entity string) (query.Spec, error) {
	s := query.Spec{Entity: entity, Offset: f.Offset}
	var err error

	if s.Where, err = scalarPairs("where", f.Where); err != nil {
		return query.Spec{}, err
	}
	if s.Not, err = scalarPairs("not", f.Not); err != nil {
		return query.Spec{}, err
	}
	if s.In, err = listPairs("in", f.In); err != nil {
		return query.Spec{}, err
	}
	if s.NotIn, err = listPairs("not-in", f.NotIn); err != nil {
		return query.Spec{}, err
	}

	for _, o := range f.Order {
		field, dir, _ := strings.Cut(o, ":")
		switch dir {
		case "", "asc":
			s.Order = append(s.Order, query.SortSpec{Field: field})
		case "desc":
			s.Order = append(s.Order, query.SortSpec{Field: field, Desc: true})
		default:
			return query.Spec{}, fmt.Errorf("--order %q: direction must be asc or desc", o)
		}
	}

	if f.Limit >= 0 {
		limit := f.Limit
		s.Limit = &limit
	}
	return s, nil
}

// build converts the flags to a validated query over entity.
func (f *queryFlags) build(entity string) (query.Query, error) {
	s, err := f.spec(entity)
	if err != nil {
		return query.Query{}, err
	}
	return s.Build()
}

func scalarPairs(flag string, pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		field, raw, ok := strings.Cut(p, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("--%s %q: want field=value", flag, p)
		}
		v, err := parseScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("--%s %q: %w", flag, p, err)
		}
		out[field] = v
	}
	return out, nil
}

func listPairs(flag string, pairs []string) (map[string][]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string][]any, len(pairs))
	for _, p := range pairs {
		field, raw, ok := strings.Cut(p, "=")
		if !ok || field == "" || raw == "" {
			return nil, fmt.Errorf("--%s %q: want field=v1,v2", flag, p)
		}
		for _, item := range strings.Split(raw, ",") {
			v, err := parseScalar(item)
			if err != nil {
				return nil, fmt.Errorf("--%s %q: %w", flag, p, err)
			}
			out[field] = append(out[field], v)
		}
	}
	return out, nil
}

// parseScalar reads a flag value as a YAML scalar, so true, 42 and null
// keep their types and anything else is a string.
func parseScalar(raw string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case nil, bool, int, string:
		return v, nil
	default:
		return raw, nil
	}
}
