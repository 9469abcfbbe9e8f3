package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the feed cache and region views.
type Metrics struct {
	Refreshes       *prometheus.CounterVec // labels: outcome={success,transport,timeout,status,circuit,parse}
	RefreshDuration prometheus.Histogram
	LastSuccess     prometheus.Gauge
	SnapshotAlerts  prometheus.Gauge
	SkippedRecords  prometheus.Counter
	ObserverPanics  prometheus.Counter
	RegionAlerts    *prometheus.GaugeVec // labels: region
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Refreshes,
		m.RefreshDuration,
		m.LastSuccess,
		m.SnapshotAlerts,
		m.SkippedRecords,
		m.ObserverPanics,
		m.RegionAlerts,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as many
// caches as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_warnings",
			Name:      "refreshes_total",
			Help:      "Feed refreshes by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_warnings",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a fetch-and-parse cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_warnings",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
		SnapshotAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_warnings",
			Name:      "snapshot_alerts",
			Help:      "Number of alerts in the current snapshot.",
		}),
		SkippedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_warnings",
			Name:      "skipped_records_total",
			Help:      "Malformed alert records dropped while parsing.",
		}),
		ObserverPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_warnings",
			Name:      "observer_panics_total",
			Help:      "Snapshot observers that panicked and were isolated.",
		}),
		RegionAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "weather_warnings",
			Name:      "region_alerts",
			Help:      "Active alerts per region.",
		}, []string{"region"}),
	}
}
