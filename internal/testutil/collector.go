package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/livesync/internal/store"
)

// Delivery is one observed callback, flattened for assertions and traces.
type Delivery struct {
	Observer string   `yaml:"observer" json:"observer"`
	Event    string   `yaml:"event" json:"event"`
	IDs      []int64  `yaml:"ids,omitempty" json:"ids,omitempty"`
	Diffs    []string `yaml:"diffs,omitempty" json:"diffs,omitempty"`
	Error    string   `yaml:"error,omitempty" json:"error,omitempty"`
}

// String renders the delivery on one line, e.g.
// "favs valueAdded ids=[1 2 3 4] diffs=[insert(3)]".
func (d Delivery) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", d.Observer, d.Event)
	if d.Error != "" {
		fmt.Fprintf(&b, " error=%q", d.Error)
		return b.String()
	}
	fmt.Fprintf(&b, " ids=%v diffs=[%s]", d.IDs, strings.Join(d.Diffs, " "))
	return b.String()
}

// Collector records deliveries in arrival order.
//
// Thread-safety: all methods are safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	deliveries []Delivery
}

// Data records a data delivery.
func (c *Collector) Data(observer, event string, ids []int64, diffs []store.Diff) {
	ds := make([]string, len(diffs))
	for i, d := range diffs {
		ds[i] = d.String()
	}
	if ids == nil {
		ids = []int64{}
	}
	c.add(Delivery{Observer: observer, Event: event, IDs: ids, Diffs: ds})
}

// Cancel records a cancellation.
func (c *Collector) Cancel(observer string, err error) {
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	c.add(Delivery{Observer: observer, Event: "cancel", Error: msg})
}

// CancelFunc returns a cancel callback that records into c.
func (c *Collector) CancelFunc(observer string) func(error) {
	return func(err error) { c.Cancel(observer, err) }
}

func (c *Collector) add(d Delivery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = append(c.deliveries, d)
}

// All returns a copy of the recorded deliveries.
func (c *Collector) All() []Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Delivery(nil), c.deliveries...)
}

// Events returns the event names in arrival order.
func (c *Collector) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.deliveries))
	for i, d := range c.deliveries {
		out[i] = d.Event
	}
	return out
}

// For returns the deliveries made to observer.
func (c *Collector) For(observer string) []Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Delivery
	for _, d := range c.deliveries {
		if d.Observer == observer {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of deliveries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deliveries)
}

// Reset discards every recorded delivery.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries = nil
}

// Lines renders every delivery with Delivery.String.
func (c *Collector) Lines() []string {
	all := c.All()
	out := make([]string, len(all))
	for i, d := range all {
		out[i] = d.String()
	}
	return out
}
