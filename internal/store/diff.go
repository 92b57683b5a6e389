package store

import (
	"fmt"
	"sort"

	"github.com/roach88/livesync/internal/ir"
)

// DiffKind is the variant tag of a Diff.
type DiffKind int

const (
	// DiffInsert is a record that entered the result set.
	DiffInsert DiffKind = iota + 1
	// DiffUpdate is a record whose content changed in place.
	DiffUpdate
	// DiffMove is a record whose position changed.
	DiffMove
	// DiffDelete is a record that left the result set.
	DiffDelete
)

// String returns the lowercase name of the kind.
func (k DiffKind) String() string {
	switch k {
	case DiffInsert:
		return "insert"
	case DiffUpdate:
		return "update"
	case DiffMove:
		return "move"
	case DiffDelete:
		return "delete"
	default:
		return fmt.Sprintf("DiffKind(%d)", int(k))
	}
}

// Diff is one classified change at a row position. To is only meaningful
// for DiffMove.
type Diff struct {
	Kind DiffKind `json:"kind"`
	Pos  int      `json:"pos"`
	To   int      `json:"to,omitempty"`
}

// Insert returns an insertion at pos in the new result.
func Insert(pos int) Diff { return Diff{Kind: DiffInsert, Pos: pos} }

// Update returns an in-place update at pos in the previous result.
func Update(pos int) Diff { return Diff{Kind: DiffUpdate, Pos: pos} }

// Move returns a move from a previous to a new position.
func Move(from, to int) Diff { return Diff{Kind: DiffMove, Pos: from, To: to} }

// Delete returns a removal at pos in the previous result.
func Delete(pos int) Diff { return Diff{Kind: DiffDelete, Pos: pos} }

// String renders the diff compactly, e.g. "move(2->0)".
func (d Diff) String() string {
	if d.Kind == DiffMove {
		return fmt.Sprintf("move(%d->%d)", d.Pos, d.To)
	}
	return fmt.Sprintf("%s(%d)", d.Kind, d.Pos)
}

// Compute returns the diffs that turn prev into next, matching records by
// id. Output order: deletes, inserts, moves, updates, each ascending by
// position. A record that both moved and changed is reported as a move.
//
// Moves are minimal: the largest set of surviving records that kept their
// relative order stays put, and only the rest are reported as moved.
func Compute(prev, next []ir.Object) []Diff {
	prevPos := make(map[int64]int, len(prev))
	for i, r := range prev {
		if id, ok := RecordID(r); ok {
			prevPos[id] = i
		}
	}
	nextPos := make(map[int64]int, len(next))
	for i, r := range next {
		if id, ok := RecordID(r); ok {
			nextPos[id] = i
		}
	}

	diffs := []Diff{}
	for i, r := range prev {
		id, _ := RecordID(r)
		if _, ok := nextPos[id]; !ok {
			diffs = append(diffs, Delete(i))
		}
	}

	// survivors in new order, carrying their previous positions
	type survivor struct {
		prev, next int
	}
	var survivors []survivor
	for i, r := range next {
		id, _ := RecordID(r)
		p, ok := prevPos[id]
		if !ok {
			diffs = append(diffs, Insert(i))
			continue
		}
		survivors = append(survivors, survivor{prev: p, next: i})
	}

	prevOrder := make([]int, len(survivors))
	for i, s := range survivors {
		prevOrder[i] = s.prev
	}
	stable := longestIncreasing(prevOrder)

	var updates []Diff
	for i, s := range survivors {
		if !stable[i] {
			diffs = append(diffs, Move(s.prev, s.next))
			continue
		}
		if !ir.Equal(prev[s.prev], next[s.next]) {
			updates = append(updates, Update(s.prev))
		}
	}
	sort.Slice(updates, func(a, b int) bool { return updates[a].Pos < updates[b].Pos })
	return append(diffs, updates...)
}

// longestIncreasing marks the members of one longest strictly increasing
// subsequence of xs (patience sorting, O(n log n)).
func longestIncreasing(xs []int) []bool {
	marks := make([]bool, len(xs))
	if len(xs) == 0 {
		return marks
	}

	// tails[k] is the index in xs of the smallest tail of an increasing
	// run of length k+1.
	tails := make([]int, 0, len(xs))
	parent := make([]int, len(xs))
	for i, x := range xs {
		k := sort.Search(len(tails), func(j int) bool { return xs[tails[j]] >= x })
		if k > 0 {
			parent[i] = tails[k-1]
		} else {
			parent[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}

	for i := tails[len(tails)-1]; i >= 0; i = parent[i] {
		marks[i] = true
	}
	return marks
}
