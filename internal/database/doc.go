// Package database is the synchronization orchestrator.
//
// A Database binds exactly one storage watch to each distinct query that has
// at least one registration, feeds the watch's results into a SyncPoint and
// fires the resulting events on a single delivery queue.
//
// ARCHITECTURE:
//
// Registration:
//  1. The registration joins the query's View in the SyncPoint.
//  2. If a watcher already exists for the query, the View's current result is
//     delivered to the newcomer straight away.
//  3. Otherwise a watcher entry is reserved under the watcher-map lock and
//     the storage watch is opened after the lock is released. The watch
//     delivers its first result synchronously, which reaches every
//     registration on the View as a Data event.
//
// Writes:
// Update and Delete run on a bounded worker pool and return a Future. They
// never emit events themselves; the watchers observe the store change and
// drive the usual change path.
//
// Errors:
// A watcher that reports an error is terminal. Every registration on its
// View receives one cancel event and is removed, and the watcher is
// forgotten. A later registration on the same query opens a fresh watcher.
//
// Lock order: storage refresh, Database.mu, SyncPoint, Registry, delivery
// queue. Storage calls are never made while Database.mu is held. Events are
// enqueued before Database.mu is released, so each registration sees them in
// the order its View changed; callbacks run later on the queue goroutine,
// with no lock held.
package database
