package event

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// funcRegistration delivers every value above min to deliver.
type funcRegistration struct {
	handle  Handle
	min     int
	deliver func(int)
	cancel  func(error)
}

func (r *funcRegistration) Handle() Handle { return r.handle }

func (r *funcRegistration) DataEvent(v int) (Event, bool) {
	if v < r.min {
		return Event{}, false
	}
	return Data(r.handle, func() { r.deliver(v) }), true
}

func (r *funcRegistration) CancelEvent(err error) (Event, bool) {
	if r.cancel == nil {
		return Event{}, false
	}
	return Cancel(r.handle, err, r.cancel), true
}

// sink records deliveries as "handle:value" strings.
type sink struct {
	got []string
}

func (s *sink) reg(h Handle, min int, cancellable bool) *funcRegistration {
	r := &funcRegistration{
		handle:  h,
		min:     min,
		deliver: func(v int) { s.got = append(s.got, h.String()+":"+strconv.Itoa(v)) },
	}
	if cancellable {
		r.cancel = func(err error) { s.got = append(s.got, h.String()+":cancel:"+err.Error()) }
	}
	return r
}

func fire(events []Event) {
	for _, e := range events {
		e.Fire()
	}
}

func TestRegistry_BroadcastInInsertionOrder(t *testing.T) {
	var s sink
	r := NewRegistry[int]()
	r.Add(s.reg(2, 0, false))
	r.Add(s.reg(1, 0, false))
	r.Add(s.reg(3, 10, false))

	events := r.Broadcast(5)
	require.Len(t, events, 2, "registration 3 is not interested in 5")
	assert.Empty(t, s.got, "broadcast does not run callbacks")

	fire(events)
	assert.Equal(t, []string{"2:5", "1:5"}, s.got)
}

func TestRegistry_EventsBindValueAtBuildTime(t *testing.T) {
	var s sink
	r := NewRegistry[int]()
	r.Add(s.reg(1, 0, false))

	first := r.Broadcast(1)
	second := r.Broadcast(2)
	fire(second)
	fire(first)
	assert.Equal(t, []string{"1:2", "1:1"}, s.got)
}

func TestRegistry_BroadcastTo(t *testing.T) {
	var s sink
	r := NewRegistry[int]()
	r.Add(s.reg(1, 0, false))
	r.Add(s.reg(2, 0, false))

	fire(r.BroadcastTo(7, 2))
	assert.Equal(t, []string{"2:7"}, s.got)

	assert.Empty(t, r.BroadcastTo(7, 99), "unknown handle")
}

func TestRegistry_AddReplacesSameHandle(t *testing.T) {
	var s sink
	r := NewRegistry[int]()
	r.Add(s.reg(1, 0, false))
	r.Add(s.reg(2, 0, false))
	r.Add(s.reg(1, 100, false))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []Handle{1, 2}, r.Handles())
	assert.Len(t, r.Broadcast(5), 1)
}

func TestRegistry_RemoveWithCancel(t *testing.T) {
	var s sink
	r := NewRegistry[int]()
	r.Add(s.reg(1, 0, true))
	r.Add(s.reg(2, 0, false))

	events := r.Remove(1, errors.New("gone"))
	require.Len(t, events, 1)
	assert.Equal(t, KindCancel, events[0].Kind)
	fire(events)
	assert.Equal(t, []string{"1:cancel:gone"}, s.got)

	assert.Empty(t, r.Remove(2, errors.New("gone")), "no cancel callback")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_RemoveWithoutErrorIsSilent(t *testing.T) {
	var s sink
	r := NewRegistry[int]()
	r.Add(s.reg(1, 0, true))

	assert.Empty(t, r.Remove(1, nil))
	_, ok := r.Get(1)
	assert.False(t, ok)
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	r := NewRegistry[int]()
	assert.NotPanics(t, func() {
		assert.Empty(t, r.Remove(42, errors.New("x")))
		assert.Empty(t, r.Remove(42, nil))
	})
}

func TestRegistry_CancelAllKeepsRegistrations(t *testing.T) {
	var s sink
	r := NewRegistry[int]()
	r.Add(s.reg(1, 0, true))
	r.Add(s.reg(2, 0, false))
	r.Add(s.reg(3, 0, true))

	fire(r.CancelAll(errors.New("down")))
	assert.Equal(t, []string{"1:cancel:down", "3:cancel:down"}, s.got)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_Get(t *testing.T) {
	var s sink
	r := NewRegistry[int]()
	reg := s.reg(5, 0, false)
	r.Add(reg)

	got, ok := r.Get(5)
	require.True(t, ok)
	assert.Same(t, reg, got)
}
