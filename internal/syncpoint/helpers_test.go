package syncpoint

import (
	"errors"
	"fmt"

	"github.com/roach88/livesync/internal/event"
	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
)

var errStorage = errors.New("storage read failed")

func favorites() query.Query {
	return query.New("Post").Where(query.Eq("isFavorite", ir.Bool(true))).Order("id", true)
}

func post(id int64, title string) ir.Object {
	return ir.Object{"id": ir.Int(id), "title": ir.String(title), "isFavorite": ir.Bool(true)}
}

// delivery is one fired callback, flattened for assertions.
type delivery struct {
	handle event.Handle
	typ    EventType // zero for cancellations
	ids    []int64
	diffs  string
	err    error
}

// journal builds registrations that record into a shared delivery log.
type journal struct {
	got []delivery
}

func (j *journal) reg(h event.Handle, types ...EventType) *Registration {
	cbs := make(map[EventType]Callback, len(types))
	for _, t := range types {
		cbs[t] = func(s Snapshot) {
			j.got = append(j.got, delivery{handle: h, typ: t, ids: s.IDs(), diffs: fmt.Sprint(s.Diffs())})
		}
	}
	return NewRegistration(h, cbs, func(err error) {
		j.got = append(j.got, delivery{handle: h, err: err})
	})
}

func fire(events []event.Event) {
	for _, e := range events {
		e.Fire()
	}
}
