package database

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/livesync/internal/event"
	"github.com/roach88/livesync/internal/metrics"
)

// DefaultPoolSize is the default number of concurrent storage writes.
const DefaultPoolSize = 8

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(db *Database) {
		db.logger = l
	}
}

// WithIDGenerator sets the registration handle generator.
// Default: a fresh generator starting at 1.
func WithIDGenerator(g *event.IDGenerator) Option {
	return func(db *Database) {
		db.ids = g
	}
}

// WithWriteIDGenerator sets the generator for Future IDs.
// Default: UUIDv7Generator.
func WithWriteIDGenerator(g WriteIDGenerator) Option {
	return func(db *Database) {
		db.writeIDs = g
	}
}

// WithPoolSize bounds the number of concurrent storage writes.
// Default: 8 (DefaultPoolSize).
func WithPoolSize(n int) Option {
	return func(db *Database) {
		db.poolSize = n
	}
}

// WithMetrics sets the collectors. Default: metrics.New().
func WithMetrics(m *metrics.Metrics) Option {
	return func(db *Database) {
		db.metrics = m
	}
}

// WithTracerProvider sets the provider used for write spans.
// Default: the global provider from otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(db *Database) {
		db.tracerProvider = tp
	}
}
