package database

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// WriteIDGenerator generates IDs for write Futures. The ID is attached to
// write logs and spans for correlation.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type WriteIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 write IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs, then numbered fallbacks.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	prefix string
	ids    []string
	idx    int
}

// NewFixedGenerator creates a generator that returns ids in order, then
// "<prefix>-<n>" once they are exhausted.
//
// Example:
//
//	gen := NewFixedGenerator("write", "w-a")
//	gen.Generate() // "w-a"
//	gen.Generate() // "write-2"
func NewFixedGenerator(prefix string, ids ...string) *FixedGenerator {
	if prefix == "" {
		prefix = "write"
	}
	return &FixedGenerator{prefix: prefix, ids: ids}
}

// Generate returns the next ID.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if g.idx <= len(g.ids) {
		return g.ids[g.idx-1]
	}
	return g.prefix + "-" + strconv.Itoa(g.idx)
}
