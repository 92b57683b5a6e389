// Package syncpoint caches query results and fans changes out to the
// registrations interested in them.
//
// A SyncPoint maps each distinct query (by structural key) to one View. A
// View holds the last known ordered result set and the registrations on that
// query. When the storage watcher reports a change, the View buckets the
// diffs by kind and produces one event per bucket per interested
// registration, followed by a catch-all Data event.
//
// Nothing here runs subscriber code. Every mutating method returns the
// events it produced and the caller fires them on its delivery queue after
// releasing its locks.
package syncpoint
