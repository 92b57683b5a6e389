package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/syncpoint"
)

// Scenario defines a live-query conformance scenario.
// A scenario seeds a fresh store, registers observers, applies a sequence
// of steps and checks the deliveries the observers received.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Engine selects the storage engine: "memory" (default) or "sqlite".
	// The sqlite engine runs on a private in-memory database.
	Engine string `yaml:"engine,omitempty"`

	// Seed is written straight to the store before any observer exists.
	Seed []RecordSet `yaml:"seed,omitempty"`

	// Observers are registered in declaration order before the first step,
	// except those marked deferred, which wait for an observe step.
	Observers []Observer `yaml:"observers"`

	// Steps run in order. Every step is settled (its write completed and
	// every resulting callback delivered) before the next one starts.
	Steps []Step `yaml:"steps,omitempty"`

	// Expect is the exact trace, one Delivery.String line per delivery.
	// If empty, only assertions are checked.
	Expect []string `yaml:"expect,omitempty"`

	// Assertions validate the trace and final store contents.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RecordSet is a batch of records for one entity.
type RecordSet struct {
	Entity  string           `yaml:"entity"`
	Records []map[string]any `yaml:"records"`
}

// Objects converts the records to ir objects.
func (rs RecordSet) Objects() ([]ir.Object, error) {
	out := make([]ir.Object, len(rs.Records))
	for i, r := range rs.Records {
		v, err := ir.FromGo(r)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", rs.Entity, i, err)
		}
		out[i] = v.(ir.Object)
	}
	return out, nil
}

// Observer declares one registration.
type Observer struct {
	// Name labels the observer's deliveries in the trace.
	Name string `yaml:"name"`

	// Query is the observed query.
	Query query.Spec `yaml:"query"`

	// Events lists the event types the observer subscribes to.
	// Defaults to [data].
	Events []syncpoint.EventType `yaml:"events,omitempty"`

	// Cancel registers a cancel callback, recorded as a "cancel" delivery.
	Cancel bool `yaml:"cancel,omitempty"`

	// Once removes the observer after its first delivery.
	Once bool `yaml:"once,omitempty"`

	// Deferred observers are registered by an observe step.
	Deferred bool `yaml:"deferred,omitempty"`
}

// Step is one scenario action. Exactly one of the action fields is set.
type Step struct {
	// Upsert writes records through the database write path.
	Upsert *RecordSet `yaml:"upsert,omitempty"`

	// Delete removes every record matched by the query.
	Delete *query.Spec `yaml:"delete,omitempty"`

	// Observe registers a deferred observer by name.
	Observe string `yaml:"observe,omitempty"`

	// Remove unregisters an observer by name.
	Remove string `yaml:"remove,omitempty"`

	// Fail terminates every live watch on an entity with a read error.
	Fail *FailStep `yaml:"fail,omitempty"`

	// ExpectError, when set, is a substring the step's error must contain.
	// A step that fails without it fails the scenario.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// FailStep simulates a storage read failure.
type FailStep struct {
	Entity string `yaml:"entity"`
	Error  string `yaml:"error"`
}

// action returns the name of the step's action, or "" if none or more
// than one is set.
func (s Step) action() string {
	var set []string
	if s.Upsert != nil {
		set = append(set, "upsert")
	}
	if s.Delete != nil {
		set = append(set, "delete")
	}
	if s.Observe != "" {
		set = append(set, "observe")
	}
	if s.Remove != "" {
		set = append(set, "remove")
	}
	if s.Fail != nil {
		set = append(set, "fail")
	}
	if len(set) != 1 {
		return ""
	}
	return set[0]
}

// Assertion validates the trace or the final store contents.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a delivery to Observer of Event (and IDs, if set)
	// - "trace_order": the Lines prefixes appear in this order
	// - "trace_count": Observer received Event exactly Count times
	// - "final_state": Query returns exactly IDs, in order
	Type string `yaml:"type"`

	Observer string      `yaml:"observer,omitempty"`
	Event    string      `yaml:"event,omitempty"`
	IDs      []int64     `yaml:"ids,omitempty"`
	Count    int         `yaml:"count,omitempty"`
	Lines    []string    `yaml:"lines,omitempty"`
	Query    *query.Spec `yaml:"query,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "observer:" vs "observers:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Engine {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("engine %q: must be memory or sqlite", s.Engine)
	}
	if len(s.Observers) == 0 {
		return fmt.Errorf("observers list is required and must be non-empty")
	}

	for i, rs := range s.Seed {
		if rs.Entity == "" {
			return fmt.Errorf("seed[%d]: entity is required", i)
		}
	}

	names := make(map[string]bool, len(s.Observers))
	for i, o := range s.Observers {
		if o.Name == "" {
			return fmt.Errorf("observers[%d]: name is required", i)
		}
		if names[o.Name] {
			return fmt.Errorf("observers[%d]: duplicate name %q", i, o.Name)
		}
		names[o.Name] = true
		if _, err := o.Query.Build(); err != nil {
			return fmt.Errorf("observers[%d] (%s): %w", i, o.Name, err)
		}
	}

	for i, step := range s.Steps {
		if step.action() == "" {
			return fmt.Errorf("steps[%d]: exactly one of upsert, delete, observe, remove or fail is required", i)
		}
		for _, name := range []string{step.Observe, step.Remove} {
			if name != "" && !names[name] {
				return fmt.Errorf("steps[%d]: unknown observer %q", i, name)
			}
		}
		if step.Delete != nil {
			if _, err := step.Delete.Build(); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertTraceContains, AssertTraceCount:
			if a.Observer == "" || a.Event == "" {
				return fmt.Errorf("assertions[%d]: %s requires observer and event", i, a.Type)
			}
		case AssertTraceOrder:
			if len(a.Lines) == 0 {
				return fmt.Errorf("assertions[%d]: trace_order requires lines", i)
			}
		case AssertFinalState:
			if a.Query == nil {
				return fmt.Errorf("assertions[%d]: final_state requires query", i)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
	}

	return nil
}
