package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/roach88/livesync/internal/database"
	"github.com/roach88/livesync/internal/event"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
	"github.com/roach88/livesync/internal/syncpoint"
	"github.com/roach88/livesync/internal/testutil"
)

// Harness is the test execution engine for one scenario run.
// Handles and write ids start from fixed values, so two runs of the same
// scenario produce identical traces.
type Harness struct {
	db        *database.Database
	engine    *testutil.CountingEngine
	collector *testutil.Collector
	observers map[string]*liveObserver
	logger    *slog.Logger
}

// liveObserver tracks a declared observer and its current registration.
type liveObserver struct {
	spec   Observer
	q      query.Query
	handle event.Handle
	active bool
}

// Option configures a harness run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes database logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh store for isolation.
//
// Execution flow:
//  1. Open the store and seed it directly
//  2. Register non-deferred observers in declaration order
//  3. Execute steps, settling each one
//  4. Compare the trace with Expect and evaluate assertions
//
// A returned error means the scenario could not be executed at all;
// scenario failures are reported through Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	inner, err := openEngine(scenario.Engine)
	if err != nil {
		return nil, err
	}
	counting := testutil.NewCountingEngine(inner)
	defer counting.Close()

	ctx := context.Background()
	for i, rs := range scenario.Seed {
		records, err := rs.Objects()
		if err != nil {
			return nil, fmt.Errorf("seed[%d]: %w", i, err)
		}
		if err := counting.Upsert(ctx, rs.Entity, records); err != nil {
			return nil, fmt.Errorf("seed[%d]: %w", i, err)
		}
	}

	db, err := database.New(counting,
		database.WithLogger(cfg.logger),
		database.WithIDGenerator(event.NewIDGenerator()),
		database.WithWriteIDGenerator(database.NewFixedGenerator(scenario.Name)),
		database.WithPoolSize(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	h := &Harness{
		db:        db,
		engine:    counting,
		collector: &testutil.Collector{},
		observers: make(map[string]*liveObserver, len(scenario.Observers)),
		logger:    cfg.logger,
	}

	result := NewResult()
	for _, o := range scenario.Observers {
		q, err := o.Query.Build()
		if err != nil {
			return nil, fmt.Errorf("observer %s: %w", o.Name, err)
		}
		h.observers[o.Name] = &liveObserver{spec: o, q: q}
	}
	for _, o := range scenario.Observers {
		if o.Deferred {
			continue
		}
		if err := h.observe(ctx, o.Name); err != nil {
			result.AddError(fmt.Sprintf("observer %s: %v", o.Name, err))
		}
		db.Flush()
	}

	for i, step := range scenario.Steps {
		err := h.execute(ctx, step)
		db.Flush()
		checkStepError(result, i, step, err)
	}

	result.Trace = h.collector.All()

	if len(scenario.Expect) > 0 {
		for _, msg := range diffLines(scenario.Expect, result.Lines()) {
			result.AddError(msg)
		}
	}

	actx := &AssertionContext{Ctx: ctx, Engine: counting}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func openEngine(name string) (store.Engine, error) {
	switch name {
	case "", "memory":
		return store.NewMemory(), nil
	case "sqlite":
		eng, err := store.OpenSQLite(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		return eng, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

func checkStepError(result *Result, i int, step Step, err error) {
	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("steps[%d] (%s): %v", i, step.action(), err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected error containing %q, got none",
			i, step.action(), step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected error containing %q, got %q",
			i, step.action(), step.ExpectError, err.Error()))
	}
}

// execute runs one step and waits for its write, if any, to complete.
func (h *Harness) execute(ctx context.Context, step Step) error {
	switch step.action() {
	case "upsert":
		records, err := step.Upsert.Objects()
		if err != nil {
			return err
		}
		return h.db.Update(ctx, query.New(step.Upsert.Entity), records).Wait(ctx)
	case "delete":
		q, err := step.Delete.Build()
		if err != nil {
			return err
		}
		return h.db.Delete(ctx, q).Wait(ctx)
	case "observe":
		return h.observe(ctx, step.Observe)
	case "remove":
		return h.remove(step.Remove)
	case "fail":
		n := h.engine.FailWatches(step.Fail.Entity, errors.New(step.Fail.Error))
		h.logger.Debug("failed watches", "entity", step.Fail.Entity, "count", n)
		return nil
	default:
		return fmt.Errorf("step has no single action")
	}
}

// observe registers the named observer. Its deliveries are recorded under
// its name.
func (h *Harness) observe(ctx context.Context, name string) error {
	o := h.observers[name]
	if o.active {
		return fmt.Errorf("observer %s is already registered", name)
	}

	types := o.spec.Events
	if len(types) == 0 {
		types = []syncpoint.EventType{syncpoint.Data}
	}

	handle := h.db.NextHandle()
	var fired atomic.Bool
	callbacks := make(map[syncpoint.EventType]syncpoint.Callback, len(types))
	for _, t := range types {
		callbacks[t] = func(s syncpoint.Snapshot) {
			if o.spec.Once && fired.Swap(true) {
				return
			}
			h.collector.Data(name, t.String(), s.IDs(), s.Diffs())
			if o.spec.Once {
				h.db.RemoveEventRegistration(handle, o.q, nil)
			}
		}
	}
	var cancel func(error)
	if o.spec.Cancel {
		cancel = h.collector.CancelFunc(name)
	}

	o.handle = handle
	o.active = true
	return h.db.AddEventRegistration(ctx, syncpoint.NewRegistration(handle, callbacks, cancel), o.q)
}

func (h *Harness) remove(name string) error {
	o := h.observers[name]
	if !o.active {
		return fmt.Errorf("observer %s is not registered", name)
	}
	o.active = false
	h.db.RemoveEventRegistration(o.handle, o.q, nil)
	return nil
}

// diffLines compares expected and actual traces line by line.
func diffLines(expected, actual []string) []string {
	if slices.Equal(expected, actual) {
		return nil
	}
	var msgs []string
	for i := 0; i < max(len(expected), len(actual)); i++ {
		var want, got string
		if i < len(expected) {
			want = expected[i]
		}
		if i < len(actual) {
			got = actual[i]
		}
		if want != got {
			msgs = append(msgs, fmt.Sprintf("trace[%d]: expected %q, got %q", i, want, got))
		}
	}
	return msgs
}
