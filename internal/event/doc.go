// Package event implements the subscription primitives shared by the sync
// layer: registration handles, the tagged Event value, a generic fan-out
// Registry and the delivery Queue.
//
// ARCHITECTURE:
//
// Collect, then fire:
// Registry methods never invoke subscriber code. They build Events under
// their own lock and return them. The caller fires the returned Events on a
// Queue after every lock it holds has been released. A callback can
// therefore add or remove registrations without deadlocking.
//
// Single delivery goroutine:
// A Queue runs every callback on one goroutine in FIFO order. Callbacks for
// a registration are strictly ordered and never run concurrently with any
// other callback from the same Queue.
//
// Handles:
// Registrations are identified by a Handle taken from an IDGenerator. A
// generator never hands out the same Handle twice. Generators are plain
// values passed by reference, so tests can inject their own.
package event
