package syncpoint

import (
	"fmt"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
)

// EventType selects which changes a callback receives.
type EventType int

const (
	// Data is the catch-all: the full result and the full diff list after
	// every change, and the current result when a registration joins.
	Data EventType = iota + 1
	// ValueDeleted fires when records left the result.
	ValueDeleted
	// ValueAdded fires when records entered the result.
	ValueAdded
	// ValueMoved fires when records changed position.
	ValueMoved
	// ValueUpdated fires when records changed content in place.
	ValueUpdated
)

// EventTypes lists every event type in delivery order within a batch.
var EventTypes = []EventType{ValueDeleted, ValueAdded, ValueMoved, ValueUpdated, Data}

var eventTypeNames = map[EventType]string{
	Data:         "data",
	ValueDeleted: "valueDeleted",
	ValueAdded:   "valueAdded",
	ValueMoved:   "valueMoved",
	ValueUpdated: "valueUpdated",
}

// String returns the camelCase name used in traces and on the CLI.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) {
	if _, ok := eventTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown event type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EventType) UnmarshalText(text []byte) error {
	parsed, err := ParseEventType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseEventType is the inverse of EventType.String.
func ParseEventType(s string) (EventType, error) {
	for t, name := range eventTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q (want data, valueAdded, valueDeleted, valueMoved or valueUpdated)", s)
}

// eventTypeFor maps a diff kind to the event type of its bucket.
func eventTypeFor(k store.DiffKind) EventType {
	switch k {
	case store.DiffDelete:
		return ValueDeleted
	case store.DiffInsert:
		return ValueAdded
	case store.DiffMove:
		return ValueMoved
	case store.DiffUpdate:
		return ValueUpdated
	default:
		panic(fmt.Sprintf("syncpoint: unknown diff kind %v", k))
	}
}

// Snapshot is an immutable view of a query result at one point in time,
// along with the diffs that produced it.
//
// Accessors return copies, so callbacks may keep or modify what they get
// without affecting other subscribers or the cache.
type Snapshot struct {
	query   query.Query
	records []ir.Object
	diffs   []store.Diff
}

// newSnapshot takes ownership of its arguments.
func newSnapshot(q query.Query, records []ir.Object, diffs []store.Diff) Snapshot {
	return Snapshot{query: q, records: records, diffs: diffs}
}

// Query returns the query the snapshot answers.
func (s Snapshot) Query() query.Query { return s.query }

// Len returns the number of records.
func (s Snapshot) Len() int { return len(s.records) }

// At returns a copy of the i-th record.
func (s Snapshot) At(i int) ir.Object { return s.records[i].Clone() }

// Records returns a copy of the ordered result.
func (s Snapshot) Records() []ir.Object { return cloneRecords(s.records) }

// Diffs returns a copy of the diffs carried by the snapshot.
func (s Snapshot) Diffs() []store.Diff { return append([]store.Diff{}, s.diffs...) }

// IDs returns the record ids in result order.
func (s Snapshot) IDs() []int64 {
	out := make([]int64, len(s.records))
	for i, r := range s.records {
		out[i], _ = store.RecordID(r)
	}
	return out
}

// Change is the value a View broadcasts to its registrations.
type Change struct {
	Type     EventType
	Snapshot Snapshot
}

func cloneRecords(records []ir.Object) []ir.Object {
	out := make([]ir.Object, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
