package event

import "fmt"

// Kind is the discriminant of an Event.
type Kind int

const (
	// KindData delivers a value to a registration's callback.
	KindData Kind = iota + 1
	// KindCancel delivers a terminal error to a registration's cancel
	// callback.
	KindCancel
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindCancel:
		return "cancel"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is a ready-to-run delivery for one registration.
//
// The payload is bound when the event is built, so firing it later sees the
// value as it was at build time.
type Event struct {
	Kind   Kind
	Handle Handle
	// Err is the cancellation cause. Only set for KindCancel.
	Err error

	deliver func()
	cancel  func(error)
}

// Data builds a KindData event that runs deliver when fired.
func Data(h Handle, deliver func()) Event {
	return Event{Kind: KindData, Handle: h, deliver: deliver}
}

// Cancel builds a KindCancel event that passes err to fn when fired.
func Cancel(h Handle, err error, fn func(error)) Event {
	return Event{Kind: KindCancel, Handle: h, Err: err, cancel: fn}
}

// Fire runs the event's callback on the calling goroutine.
// Callers outside this package fire through a Queue.
func (e Event) Fire() {
	switch e.Kind {
	case KindData:
		if e.deliver != nil {
			e.deliver()
		}
	case KindCancel:
		if e.cancel != nil {
			e.cancel(e.Err)
		}
	default:
		panic(fmt.Sprintf("event: unknown kind %d", int(e.Kind)))
	}
}

// String renders the event for logs, e.g. "cancel#3: boom".
func (e Event) String() string {
	if e.Kind == KindCancel {
		return fmt.Sprintf("%s#%d: %v", e.Kind, e.Handle, e.Err)
	}
	return fmt.Sprintf("%s#%d", e.Kind, e.Handle)
}
