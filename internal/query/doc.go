// Package query provides immutable, structurally comparable query
// descriptors for livesync observers.
//
// A Query names an entity, an optional filter predicate, ordered sort keys
// and a result window (limit/offset). Builder methods (Where, And, Order,
// Limit, StartsAt) never mutate the receiver; each returns a new Query.
//
// IDENTITY:
//
// Two queries that describe the same result set have the same Key, however
// they were built. The key is SHA-256 over the RFC 8785 canonical encoding of
// the normalised descriptor (see ir.QueryKey). Normalisation:
//   - nested And predicates are flattened, single-operand And collapses
//   - always-true operands are dropped
//   - In / NotIn value lists are sorted and de-duplicated
//
// The key is what the sync layer uses to share one storage watcher and one
// cached view between every observer of the same query.
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern, so the SQL
// compiler and the in-memory matcher can switch over it exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case NotEquals:
//	case In:
//	case NotIn:
//	case And:
//	}
//
// NULL SEMANTICS:
//
// A missing field and an explicit null are the same value. Equals{f, Null}
// matches both; NotEquals and NotIn match records where the field is absent.
// This mirrors SQLite's IS / IS NOT operators used by the SQL backend.
package query
