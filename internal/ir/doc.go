// Package ir provides the constrained value model shared by queries, records
// and storage adapters.
//
// Every record stored or observed through livesync is an ir.Object. Query
// literals are ir.Value. ir imports nothing internal, so every other package
// can depend on it without cycles.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers (floats break canonical
//     encoding and therefore structural query identity)
//   - Object keys are ordered by UTF-16 code units when serialised
//   - Query identity is SHA-256 over canonical JSON with a domain prefix
package ir
