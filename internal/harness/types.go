package harness

import "github.com/roach88/livesync/internal/testutil"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step, the expected trace and all assertions matched.
	Pass bool `json:"pass"`

	// Trace contains every delivery in arrival order.
	Trace []testutil.Delivery `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []testutil.Delivery{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Lines renders the trace one delivery per line.
func (r *Result) Lines() []string {
	out := make([]string, len(r.Trace))
	for i, d := range r.Trace {
		out[i] = d.String()
	}
	return out
}
