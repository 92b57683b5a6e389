package syncpoint

import (
	"slices"

	"github.com/roach88/livesync/internal/event"
)

// Callback receives the snapshot attached to a change.
type Callback func(Snapshot)

// Registration is one subscriber on a query: a callback per event type and
// an optional cancel callback.
type Registration struct {
	handle    event.Handle
	callbacks map[EventType]Callback
	cancel    func(error)
}

var _ event.Registration[Change] = (*Registration)(nil)

// NewRegistration creates a registration that receives every event type
// present in callbacks. cancel may be nil.
func NewRegistration(h event.Handle, callbacks map[EventType]Callback, cancel func(error)) *Registration {
	cbs := make(map[EventType]Callback, len(callbacks))
	for t, fn := range callbacks {
		if fn != nil {
			cbs[t] = fn
		}
	}
	return &Registration{handle: h, callbacks: cbs, cancel: cancel}
}

// NewValueRegistration creates a registration for a single event type.
func NewValueRegistration(h event.Handle, t EventType, fn Callback, cancel func(error)) *Registration {
	return NewRegistration(h, map[EventType]Callback{t: fn}, cancel)
}

// Handle implements event.Registration.
func (r *Registration) Handle() event.Handle { return r.handle }

// Subscribes reports whether r has a callback for t.
func (r *Registration) Subscribes(t EventType) bool {
	_, ok := r.callbacks[t]
	return ok
}

// Types returns the subscribed event types in ascending order.
func (r *Registration) Types() []EventType {
	out := make([]EventType, 0, len(r.callbacks))
	for t := range r.callbacks {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Cancellable reports whether r has a cancel callback.
func (r *Registration) Cancellable() bool { return r.cancel != nil }

// Matches reports whether r and other are the same registration.
func (r *Registration) Matches(other event.Registration[Change]) bool {
	return other != nil && r.handle == other.Handle()
}

// DataEvent implements event.Registration.
func (r *Registration) DataEvent(c Change) (event.Event, bool) {
	fn, ok := r.callbacks[c.Type]
	if !ok {
		return event.Event{}, false
	}
	snap := c.Snapshot
	return event.Data(r.handle, func() { fn(snap) }), true
}

// CancelEvent implements event.Registration.
func (r *Registration) CancelEvent(err error) (event.Event, bool) {
	if r.cancel == nil {
		return event.Event{}, false
	}
	return event.Cancel(r.handle, err, r.cancel), true
}
