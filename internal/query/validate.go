package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/livesync/internal/ir"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError lists every problem found in a query.
type ValidationError struct {
	Query    string
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query %q: %s", e.Query, strings.Join(e.Problems, "; "))
}

// IsValidationError returns true if err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks that a query can be executed by every storage backend.
//
// Rules:
//  1. Entity and field names are identifiers
//  2. Literals are scalars (string, int, bool) or null for Equals/NotEquals
//  3. In / NotIn lists are non-empty and contain no null
//  4. Limit and offset are non-negative
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	v.checkIdentifier("entity", q.entity)
	if q.filter != nil {
		v.validatePredicate(q.filter)
	}
	for _, k := range q.sort {
		v.checkIdentifier("sort field", k.Field)
	}
	if q.hasLimit && q.limit < 0 {
		v.addProblem("limit must be non-negative, got %d", q.limit)
	}
	if q.offset < 0 {
		v.addProblem("offset must be non-negative, got %d", q.offset)
	}

	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Query: q.String(), Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) checkIdentifier(what, name string) {
	if !identifierPattern.MatchString(name) {
		v.addProblem("%s %q is not an identifier", what, name)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.checkIdentifier("field", pred.Field)
		v.checkLiteral(pred.Field, pred.Value, true)
	case NotEquals:
		v.checkIdentifier("field", pred.Field)
		v.checkLiteral(pred.Field, pred.Value, true)
	case In:
		v.validateList(pred.Field, pred.Values)
	case NotIn:
		v.validateList(pred.Field, pred.Values)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateList(field string, values []ir.Value) {
	v.checkIdentifier("field", field)
	if len(values) == 0 {
		v.addProblem("field %q: value list is empty", field)
	}
	for _, val := range values {
		v.checkLiteral(field, val, false)
	}
}

func (v *validator) checkLiteral(field string, val ir.Value, allowNull bool) {
	switch val.(type) {
	case ir.String, ir.Int, ir.Bool:
	case nil, ir.Null:
		if !allowNull {
			v.addProblem("field %q: null is not allowed in a value list", field)
		}
	default:
		v.addProblem("field %q: literal must be a string, int or bool, got %T", field, val)
	}
}
