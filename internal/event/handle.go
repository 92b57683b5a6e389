package event

import (
	"strconv"
	"sync/atomic"
)

// Handle identifies a registration. Two registrations are equal iff their
// handles are equal.
type Handle int64

// String returns the decimal form of the handle.
func (h Handle) String() string {
	return strconv.FormatInt(int64(h), 10)
}

// IDGenerator hands out strictly increasing handles.
//
// Thread-safety: IDGenerator is safe for concurrent use (atomic operations).
type IDGenerator struct {
	seq atomic.Int64
}

// NewIDGenerator creates a generator whose first handle is 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next handle. Calls are linearizable - each call returns
// a unique, increasing value.
func (g *IDGenerator) Next() Handle {
	return Handle(g.seq.Add(1))
}
