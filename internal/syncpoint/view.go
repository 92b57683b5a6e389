package syncpoint

import (
	"github.com/roach88/livesync/internal/event"
	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
)

// View is the cached result of one query plus the registrations on it.
//
// A View has no lock of its own. Inside a SyncPoint every View method runs
// under the SyncPoint's mutex.
type View struct {
	query   query.Query
	records []ir.Object
	regs    *event.Registry[Change]
}

// NewView creates an empty view for q.
func NewView(q query.Query) *View {
	return &View{
		query:   q,
		records: []ir.Object{},
		regs:    event.NewRegistry[Change](),
	}
}

// Query returns the view's query.
func (v *View) Query() query.Query { return v.query }

// AddEventRegistration appends reg. Nothing is emitted; see InitialEvents.
func (v *View) AddEventRegistration(reg event.Registration[Change]) {
	v.regs.Add(reg)
}

// InitialEvents returns the current result as a single Data event with an
// empty diff list, for reg only. Empty when the cache is empty or reg does
// not subscribe to Data.
func (v *View) InitialEvents(reg event.Registration[Change]) []event.Event {
	if len(v.records) == 0 {
		return nil
	}
	c := Change{Type: Data, Snapshot: newSnapshot(v.query, v.records, []store.Diff{})}
	return v.regs.BroadcastTo(c, reg.Handle())
}

// ApplyChanges replaces the cache with records and returns the events for
// diffs.
//
// Diffs are bucketed by kind. Each non-empty bucket yields one change, in the
// order deleted, added, moved, updated, carrying the new cache and only that
// bucket's diffs. A final Data change carrying every diff is always emitted.
func (v *View) ApplyChanges(diffs []store.Diff, records []ir.Object, q query.Query) []event.Event {
	buckets := make(map[EventType][]store.Diff, 4)
	for _, d := range diffs {
		t := eventTypeFor(d.Kind)
		buckets[t] = append(buckets[t], d)
	}

	v.records = cloneRecords(records)

	var events []event.Event
	for _, t := range EventTypes {
		var bucket []store.Diff
		if t == Data {
			bucket = append([]store.Diff{}, diffs...)
		} else {
			bucket = buckets[t]
			if len(bucket) == 0 {
				continue
			}
		}
		c := Change{Type: t, Snapshot: newSnapshot(q, v.records, bucket)}
		events = append(events, v.regs.Broadcast(c)...)
	}
	return events
}

// RemoveEventRegistration removes h.
//
// When cancelErr is non-nil every registration on the view, not only h, is
// given a cancel event: an error here means the view as a whole failed. Only
// h is removed.
func (v *View) RemoveEventRegistration(h event.Handle, cancelErr error) []event.Event {
	var events []event.Event
	if cancelErr != nil {
		events = v.regs.CancelAll(cancelErr)
	}
	v.regs.Remove(h, nil)
	return events
}

// IsEmpty reports whether the view has no registrations.
func (v *View) IsEmpty() bool { return v.regs.Len() == 0 }

// Registrations returns the number of registrations.
func (v *View) Registrations() int { return v.regs.Len() }

// Handles returns the registration handles in insertion order.
func (v *View) Handles() []event.Handle { return v.regs.Handles() }

// Len returns the number of cached records.
func (v *View) Len() int { return len(v.records) }

// Records returns a copy of the cached result.
func (v *View) Records() []ir.Object { return cloneRecords(v.records) }
