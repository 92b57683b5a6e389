package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/store"
	"github.com/roach88/livesync/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string               // Assertion type for categorization
	Expected string               // Human-readable expected outcome
	Actual   string               // Human-readable actual outcome
	Trace    []testutil.Delivery // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, d := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, d)
	}

	return buf.String()
}

// assertTraceContains checks for a delivery to the observer of the event.
// When IDs are given the delivery's result ids must equal them.
func assertTraceContains(trace []testutil.Delivery, a Assertion) error {
	for _, d := range trace {
		if d.Observer != a.Observer || d.Event != a.Event {
			continue
		}
		if a.IDs == nil || slices.Equal(d.IDs, a.IDs) {
			return nil
		}
	}

	expected := fmt.Sprintf("%s %s", a.Observer, a.Event)
	if a.IDs != nil {
		expected += fmt.Sprintf(" ids=%v", a.IDs)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that a delivery starting with each of the given
// lines appears, in order. Deliveries in between are allowed.
func assertTraceOrder(trace []testutil.Delivery, a Assertion) error {
	next := 0
	for _, d := range trace {
		if next < len(a.Lines) && strings.HasPrefix(d.String(), a.Lines[next]) {
			next++
		}
	}
	if next == len(a.Lines) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("deliveries in order: %q", a.Lines),
		Actual:   fmt.Sprintf("no match for %q after the first %d", a.Lines[next], next),
		Trace:    trace,
	}
}

// assertTraceCount checks the observer received the event exactly Count
// times.
func assertTraceCount(trace []testutil.Delivery, a Assertion) error {
	count := 0
	for _, d := range trace {
		if d.Observer == a.Observer && d.Event == a.Event {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s %s", a.Count, a.Observer, a.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState runs the query against the store once and compares the
// ids of the result, in order.
func assertFinalState(ctx context.Context, eng store.Engine, a Assertion) error {
	q, err := a.Query.Build()
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}

	var got []int64
	sub, err := eng.Watch(ctx, q, func(records []ir.Object, _ []store.Diff, err error) {
		if err != nil || got != nil {
			return
		}
		got = []int64{}
		for _, r := range records {
			id, _ := store.RecordID(r)
			got = append(got, id)
		}
	})
	if err != nil {
		return fmt.Errorf("final_state %s: %w", q, err)
	}
	sub.Close()

	want := a.IDs
	if want == nil {
		want = []int64{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s returns ids=%v", q, want),
			Actual:   fmt.Sprintf("ids=%v", got),
		}
	}
	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx    context.Context
	Engine store.Engine
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires store context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Engine, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
