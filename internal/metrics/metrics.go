// Package metrics defines the Prometheus collectors exported by a Database.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for one Database. Each Database owns its own
// registry so several can live in one process (and in one test binary).
type Metrics struct {
	Registry *prometheus.Registry

	// Watchers is the number of live storage watchers.
	Watchers prometheus.Gauge
	// Registrations is the number of live registrations.
	Registrations prometheus.Gauge
	// WatchesCreated counts storage watchers opened.
	WatchesCreated prometheus.Counter
	// WatchErrors counts watchers terminated by a read error.
	WatchErrors prometheus.Counter
	// EventsFired counts events handed to the delivery queue by kind.
	EventsFired *prometheus.CounterVec
	// WritesTotal counts writes by operation and status.
	WritesTotal *prometheus.CounterVec
	// WriteDuration is the latency of writes by operation.
	WriteDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Watchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livesync_watchers",
			Help: "Number of live storage watchers",
		}),
		Registrations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livesync_registrations",
			Help: "Number of live event registrations",
		}),
		WatchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livesync_watches_created_total",
			Help: "Total number of storage watchers opened",
		}),
		WatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livesync_watch_errors_total",
			Help: "Total number of storage watchers terminated by an error",
		}),
		EventsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livesync_events_fired_total",
				Help: "Total number of events handed to the delivery queue",
			},
			[]string{"kind"},
		),
		WritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livesync_writes_total",
				Help: "Total number of storage writes",
			},
			[]string{"op", "status"},
		),
		WriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livesync_write_duration_seconds",
				Help:    "Storage write latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	m.Registry.MustRegister(
		m.Watchers,
		m.Registrations,
		m.WatchesCreated,
		m.WatchErrors,
		m.EventsFired,
		m.WritesTotal,
		m.WriteDuration,
	)
	return m
}

// ObserveWrite records the outcome and latency of one write.
func (m *Metrics) ObserveWrite(op string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.WritesTotal.WithLabelValues(op, status).Inc()
	m.WriteDuration.WithLabelValues(op).Observe(seconds)
}
