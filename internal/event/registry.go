package event

import "sync"

// Registration is a subscriber that can turn values of type V into events.
//
// DataEvent returns false when the registration is not interested in v.
// CancelEvent returns false when the registration has no cancel callback.
type Registration[V any] interface {
	Handle() Handle
	DataEvent(v V) (Event, bool)
	CancelEvent(err error) (Event, bool)
}

// Registry is a thread-safe set of registrations kept in insertion order.
//
// No method invokes subscriber code: every method that produces events
// returns them for the caller to fire after its own locks are released.
type Registry[V any] struct {
	mu   sync.Mutex
	regs []Registration[V]
}

// NewRegistry creates an empty registry.
func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{}
}

// Add inserts reg. A registration with the same handle is replaced in place.
func (r *Registry[V]) Add(reg Registration[V]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexLocked(reg.Handle()); i >= 0 {
		r.regs[i] = reg
		return
	}
	r.regs = append(r.regs, reg)
}

// Broadcast builds one event per interested registration, in insertion
// order.
func (r *Registry[V]) Broadcast(v V) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []Event
	for _, reg := range r.regs {
		if e, ok := reg.DataEvent(v); ok {
			events = append(events, e)
		}
	}
	return events
}

// BroadcastTo builds the event for the single registration h, if present
// and interested.
func (r *Registry[V]) BroadcastTo(v V, h Handle) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(h)
	if i < 0 {
		return nil
	}
	if e, ok := r.regs[i].DataEvent(v); ok {
		return []Event{e}
	}
	return nil
}

// Remove deletes h. When cancelErr is non-nil and the registration has a
// cancel callback, the returned list holds its cancel event.
// Removing an unknown handle is a no-op.
func (r *Registry[V]) Remove(h Handle, cancelErr error) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(h)
	if i < 0 {
		return nil
	}
	reg := r.regs[i]
	r.regs = append(r.regs[:i], r.regs[i+1:]...)

	if cancelErr == nil {
		return nil
	}
	if e, ok := reg.CancelEvent(cancelErr); ok {
		return []Event{e}
	}
	return nil
}

// CancelAll builds a cancel event for every registration that supports one.
// Nothing is removed.
func (r *Registry[V]) CancelAll(err error) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []Event
	for _, reg := range r.regs {
		if e, ok := reg.CancelEvent(err); ok {
			events = append(events, e)
		}
	}
	return events
}

// Get returns the registration for h.
func (r *Registry[V]) Get(h Handle) (Registration[V], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexLocked(h); i >= 0 {
		return r.regs[i], true
	}
	return nil, false
}

// Handles returns the registered handles in insertion order.
func (r *Registry[V]) Handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Handle, len(r.regs))
	for i, reg := range r.regs {
		out[i] = reg.Handle()
	}
	return out
}

// Len returns the number of registrations.
func (r *Registry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regs)
}

func (r *Registry[V]) indexLocked(h Handle) int {
	for i, reg := range r.regs {
		if reg.Handle() == h {
			return i
		}
	}
	return -1
}
