package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every Prometheus instrument the server exposes.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	RecordSavesTotal     prometheus.Counter
	DischargesTotal      *prometheus.CounterVec
	PagesRenderedTotal   prometheus.Counter
	MergesDegradedTotal  prometheus.Counter
	RecordsImportedTotal prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		RecordSavesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "records",
			Name:      "saves_total",
			Help:      "Total patient record saves (whole-record upserts).",
		}),

		DischargesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "discharge",
			Name:      "workflows_total",
			Help:      "Discharge workflow runs by procedure and outcome.",
		}, []string{"procedure", "outcome"}),

		PagesRenderedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pdf",
			Name:      "pages_rendered_total",
			Help:      "Total PDF pages composed.",
		}),

		MergesDegradedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pdf",
			Name:      "merges_degraded_total",
			Help:      "Merge steps that fell back to the unmerged document. Alert if growing.",
		}),

		RecordsImportedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "records",
			Name:      "imported_total",
			Help:      "Records imported from .clinic files.",
		}),
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
