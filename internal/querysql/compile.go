package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
)

// SQLCompiler compiles queries to parameterized SQL over the records table.
//
// Records are stored as JSON documents (records.doc). Fields are read with
// json_extract and the JSON path is itself a parameter, so neither field
// names nor values are ever interpolated into the SQL text.
//
// Every compiled SELECT ends with "id ASC" so ties are broken the same way
// the in-memory engine breaks them.
type SQLCompiler struct {
	// Table is the records table name. Defaults to "records".
	Table string
}

// NewSQLCompiler creates a compiler for the default records table.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: "records"}
}

// Compile converts a query to a SELECT returning (id, doc) rows.
// Returns (sql, params, error).
func (c *SQLCompiler) Compile(q query.Query) (string, []any, error) {
	if err := query.Validate(q); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	params := []any{q.Entity()}

	fmt.Fprintf(&b, "SELECT id, doc FROM %s WHERE entity = ?", c.Table)

	if q.Filter() != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter())
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" AND ")
		b.WriteString(filterSQL)
		params = append(params, filterParams...)
	}

	b.WriteString(" ORDER BY ")
	for _, k := range q.SortKeys() {
		b.WriteString(extract)
		if k.Descending {
			b.WriteString(" DESC, ")
		} else {
			b.WriteString(" ASC, ")
		}
		params = append(params, path(k.Field))
	}
	b.WriteString("id ASC")

	limit, bounded := q.MaxResults()
	switch {
	case bounded:
		b.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, limit, q.Offset())
	case q.Offset() > 0:
		// SQLite requires a LIMIT before OFFSET; -1 means unbounded.
		b.WriteString(" LIMIT -1 OFFSET ?")
		params = append(params, q.Offset())
	}

	return b.String(), params, nil
}

// CompileIDs converts a query to a SELECT returning only matching ids,
// in result order. Used to resolve the target set of a delete.
func (c *SQLCompiler) CompileIDs(q query.Query) (string, []any, error) {
	sql, params, err := c.Compile(q)
	if err != nil {
		return "", nil, err
	}
	return "SELECT id FROM (" + sql + ")", params, nil
}

const extract = "json_extract(doc, ?)"

func path(field string) string {
	return "$." + field
}

// compilePredicate compiles a predicate to a WHERE fragment.
// Values are NEVER interpolated - always ? placeholders.
func (c *SQLCompiler) compilePredicate(p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case query.Equals:
		return c.compileComparison(pred.Field, "IS", pred.Value)
	case query.NotEquals:
		return c.compileComparison(pred.Field, "IS NOT", pred.Value)
	case query.In:
		return c.compileIn(pred.Field, pred.Values, false)
	case query.NotIn:
		return c.compileIn(pred.Field, pred.Values, true)
	case query.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileComparison uses IS / IS NOT so a null literal matches missing fields.
func (c *SQLCompiler) compileComparison(field, op string, v ir.Value) (string, []any, error) {
	param, err := valueToParam(v)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", field, err)
	}
	return fmt.Sprintf("%s %s ?", extract, op), []any{path(field), param}, nil
}

func (c *SQLCompiler) compileIn(field string, values []ir.Value, negate bool) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("field %q: empty value list", field)
	}

	params := []any{path(field)}
	placeholders := make([]string, len(values))
	for i, v := range values {
		param, err := valueToParam(v)
		if err != nil {
			return "", nil, fmt.Errorf("field %q: %w", field, err)
		}
		placeholders[i] = "?"
		params = append(params, param)
	}
	list := strings.Join(placeholders, ", ")

	if !negate {
		return fmt.Sprintf("%s IN (%s)", extract, list), params, nil
	}
	// Absent fields must match NotIn, but NULL NOT IN (...) is NULL.
	params = append([]any{path(field)}, params...)
	return fmt.Sprintf("(%s IS NULL OR %s NOT IN (%s))", extract, extract, list), params, nil
}

func (c *SQLCompiler) compileAnd(and query.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, sub := range and.Predicates {
		sql, subParams, err := c.compilePredicate(sub)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, subParams...)
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

// valueToParam converts a literal to a driver parameter.
// Booleans bind as 1/0, matching json_extract on JSON true/false. A stored
// integer 1 therefore also equals true here, unlike ir.Equal.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil, nil
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("%T cannot be used as a SQL parameter", v)
	}
}
