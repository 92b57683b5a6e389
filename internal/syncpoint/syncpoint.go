package syncpoint

import (
	"sync"

	"github.com/roach88/livesync/internal/event"
	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
	"github.com/roach88/livesync/internal/store"
)

// SyncPoint maps queries to their Views.
//
// One mutex guards the map and every View in it. View work is in-memory list
// manipulation, so serialising unrelated queries against each other is
// cheaper than a lock per View.
type SyncPoint struct {
	mu    sync.Mutex
	views map[string]*View
}

// New creates an empty SyncPoint.
func New() *SyncPoint {
	return &SyncPoint{views: make(map[string]*View)}
}

// AddEventRegistration adds reg to the View for q, creating the View if
// needed, and returns reg's initial events.
func (s *SyncPoint) AddEventRegistration(reg event.Registration[Change], q query.Query) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := q.Key()
	v, ok := s.views[key]
	if !ok {
		v = NewView(q)
		s.views[key] = v
	}
	v.AddEventRegistration(reg)
	return v.InitialEvents(reg)
}

// ApplyChanges forwards a watcher result to the View for q.
// Returns nothing when no View exists, e.g. when the last registration was
// removed while the watcher callback was in flight.
func (s *SyncPoint) ApplyChanges(diffs []store.Diff, records []ir.Object, q query.Query) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.views[q.Key()]
	if !ok {
		return nil
	}
	return v.ApplyChanges(diffs, records, q)
}

// RemoveEventRegistration removes h from the View for q and deletes the
// View once it is empty. See View.RemoveEventRegistration for cancelErr.
func (s *SyncPoint) RemoveEventRegistration(h event.Handle, q query.Query, cancelErr error) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := q.Key()
	v, ok := s.views[key]
	if !ok {
		return nil
	}
	events := v.RemoveEventRegistration(h, cancelErr)
	if v.IsEmpty() {
		delete(s.views, key)
	}
	return events
}

// CancelQuery tears down the View for q after a watcher failure. Every
// registration gets one cancel event carrying err and is removed.
func (s *SyncPoint) CancelQuery(q query.Query, err error) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := q.Key()
	v, ok := s.views[key]
	if !ok {
		return nil
	}

	handles := v.Handles()
	var events []event.Event
	for i, h := range handles {
		if i == 0 {
			events = v.RemoveEventRegistration(h, err)
			continue
		}
		v.RemoveEventRegistration(h, nil)
	}
	delete(s.views, key)
	return events
}

// Contains reports whether a View exists for q.
func (s *SyncPoint) Contains(q query.Query) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.views[q.Key()]
	return ok
}

// Records returns a copy of the cached result for q.
func (s *SyncPoint) Records(q query.Query) ([]ir.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.views[q.Key()]
	if !ok {
		return nil, false
	}
	return v.Records(), true
}

// Registrations returns the number of registrations on q's View.
func (s *SyncPoint) Registrations(q query.Query) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.views[q.Key()]; ok {
		return v.Registrations()
	}
	return 0
}

// Len returns the number of Views.
func (s *SyncPoint) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// RegistrationCount returns the number of registrations across all Views.
func (s *SyncPoint) RegistrationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, v := range s.views {
		n += v.Registrations()
	}
	return n
}
