// Package harness runs live-query conformance scenarios.
//
// A scenario seeds a fresh store, registers observers, applies writes and
// failures step by step, and records every delivery the observers receive.
// The recorded trace is compared with an expected trace, with assertions,
// or with a golden file.
//
// # Scenario Format
//
//	name: favorites_added
//	description: "A new favourite reaches the favourites observer"
//	seed:
//	  - entity: Post
//	    records:
//	      - { id: 1, isFavorite: true }
//	observers:
//	  - name: favs
//	    query: { entity: Post, where: { isFavorite: true }, order: [{ field: id }] }
//	    events: [valueAdded, data]
//	    cancel: true
//	steps:
//	  - upsert: { entity: Post, records: [{ id: 2, isFavorite: true }] }
//	  - fail: { entity: Post, error: "disk gone" }
//	expect:
//	  - "favs data ids=[1] diffs=[]"
//	  - "favs valueAdded ids=[1 2] diffs=[insert(1)]"
//	  - "favs data ids=[1 2] diffs=[insert(1)]"
//	  - "favs cancel error=\"disk gone\""
//	assertions:
//	  - type: final_state
//	    query: { entity: Post, order: [{ field: id }] }
//	    ids: [1, 2]
//
// # Assertion Types
//
//   - trace_contains: a delivery of an event to an observer, optionally with given ids
//   - trace_order: deliveries starting with the given lines appear in order
//   - trace_count: an observer received an event exactly N times
//   - final_state: a query against the store returns exactly the given ids
//
// # Deterministic Testing
//
// Registration handles start at 1 and write ids come from a fixed
// generator. Every step is settled before the next one starts: the write
// completes, then the delivery queue is flushed. Two runs of a scenario
// therefore produce byte-identical traces.
package harness
