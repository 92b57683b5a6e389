package store

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/livesync/internal/ir"
	"github.com/roach88/livesync/internal/query"
)

type fetchFunc func(ctx context.Context, q query.Query) ([]ir.Object, error)

// hub tracks live watches for an engine and re-evaluates them after writes.
//
// Refresh passes are serialised by refreshMu, so a watch never sees two
// callbacks at once and the diff baseline (watch.last) is never raced.
// Callbacks run while refreshMu is held; they must not write to the engine.
type hub struct {
	fetch fetchFunc

	refreshMu sync.Mutex

	mu      sync.Mutex
	watches map[uint64]*watch
	nextID  uint64
}

func newHub(fetch fetchFunc) *hub {
	return &hub{
		fetch:   fetch,
		watches: make(map[uint64]*watch),
	}
}

// watch is one live query. It is the Subscription handed to callers.
type watch struct {
	id     uint64
	hub    *hub
	q      query.Query
	fn     WatchFunc
	last   []ir.Object // guarded by hub.refreshMu
	closed atomic.Bool
}

// Close stops further callbacks. Safe to call more than once and from
// inside the watch's own callback.
func (w *watch) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	w.hub.mu.Lock()
	delete(w.hub.watches, w.id)
	w.hub.mu.Unlock()
	return nil
}

func (h *hub) watch(ctx context.Context, q query.Query, fn WatchFunc) (*watch, error) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	records, err := h.fetch(ctx, q)
	if err != nil {
		return nil, readError(q.Entity(), err)
	}

	h.mu.Lock()
	h.nextID++
	w := &watch{id: h.nextID, hub: h, q: q, fn: fn, last: records}
	h.watches[w.id] = w
	h.mu.Unlock()

	fn(cloneRecords(records), []Diff{}, nil)
	return w, nil
}

// live returns the open watches on entity in creation order.
func (h *hub) live(entity string) []*watch {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []*watch
	for _, w := range h.watches {
		if w.q.Entity() == entity {
			out = append(out, w)
		}
	}
	slices.SortFunc(out, func(a, b *watch) int { return cmp.Compare(a.id, b.id) })
	return out
}

// refresh re-runs every watch on entity and delivers changed results.
// A failed fetch terminates that watch with a read error.
func (h *hub) refresh(ctx context.Context, entity string) {
	ctx = context.WithoutCancel(ctx)

	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	for _, w := range h.live(entity) {
		if w.closed.Load() {
			continue
		}
		records, err := h.fetch(ctx, w.q)
		if err != nil {
			slog.Warn("watch refresh failed", "query", w.q.String(), "error", err)
			w.Close()
			w.fn(nil, nil, readError(entity, err))
			continue
		}
		diffs := Compute(w.last, records)
		if len(diffs) == 0 {
			continue
		}
		w.last = records
		if w.closed.Load() {
			continue
		}
		w.fn(cloneRecords(records), diffs, nil)
	}
}

// closeAll terminates every watch without a final callback.
func (h *hub) closeAll() {
	h.mu.Lock()
	ws := make([]*watch, 0, len(h.watches))
	for _, w := range h.watches {
		ws = append(ws, w)
	}
	h.mu.Unlock()

	for _, w := range ws {
		w.Close()
	}
}

// count returns the number of open watches.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watches)
}
