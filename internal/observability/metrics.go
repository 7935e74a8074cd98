package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gidroatlas"

// Metrics holds the Prometheus counters, histograms, and gauges for the registry service.
type Metrics struct {
	ObjectsSynced    prometheus.Counter
	ObjectsPublished prometheus.Counter
	SerializeErrors  prometheus.Counter
	SyncRuns         *prometheus.CounterVec // labels: outcome={success,error}
	SyncDuration     prometheus.Histogram
	PipelineRunning  prometheus.Gauge
	CatalogObjects   prometheus.Gauge

	// Registry API metrics.
	RegistryRequests    *prometheus.CounterVec   // labels: operation, outcome={success,error}
	RegistryAPIDuration *prometheus.HistogramVec // labels: operation
	DetailCache         *prometheus.CounterVec   // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		ObjectsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_synced_total",
			Help:      "Total water objects fetched from the registry by sync runs.",
		}),
		ObjectsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_published_total",
			Help:      "Total water objects written to the sink topic.",
		}),
		SerializeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serialize_errors_total",
			Help:      "Total water objects that could not be serialized.",
		}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync runs by outcome.",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete extract-transform-load sync run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the sync scheduler is active, 0 when shut down.",
		}),
		CatalogObjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_objects",
			Help:      "Number of water objects held by the catalog after the last refresh.",
		}),
		RegistryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_requests_total",
			Help:      "Registry API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		RegistryAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_api_duration_seconds",
			Help:      "Registry API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		DetailCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_cache_total",
			Help:      "Object detail cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ObjectsSynced,
		m.ObjectsPublished,
		m.SerializeErrors,
		m.SyncRuns,
		m.SyncDuration,
		m.PipelineRunning,
		m.CatalogObjects,
		m.RegistryRequests,
		m.RegistryAPIDuration,
		m.DetailCache,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates Metrics registered with reg. Short-lived
// processes such as the CLI pass a private registry.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetricsWithRegisterer(prometheus.NewRegistry())
}
