// Package obsmetrics holds the Prometheus metrics surfaced by run-daemon's
// optional /metrics endpoint, grounded on
// internal/interfaces/http/metrics.go's MetricsRegistry.
package obsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the orchestrator and its source clients
// publish.
type Registry struct {
	PartitionsCommittedTotal prometheus.Counter
	HoursFailedTotal         prometheus.Counter
	WatermarkLagSeconds      prometheus.Gauge
	VisionRequestsTotal      prometheus.Counter
	RESTRequestsTotal        *prometheus.CounterVec
	RESTRetriesTotal         prometheus.Counter
}

// NewRegistry builds and registers every metric named in SPEC_FULL.md §6.
func NewRegistry() *Registry {
	r := &Registry{
		PartitionsCommittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minutelake_partitions_committed_total",
			Help: "Total number of hour partitions committed to the ledger.",
		}),
		HoursFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minutelake_hours_failed_total",
			Help: "Total number of hours that failed typed fetch/DQ checks.",
		}),
		WatermarkLagSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minutelake_watermark_lag_seconds",
			Help: "Seconds between the target horizon and the current watermark.",
		}),
		VisionRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minutelake_vision_requests_total",
			Help: "Total number of hours whose sources were read from the archive object store.",
		}),
		RESTRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minutelake_rest_requests_total",
			Help: "Total number of REST fetch steps, labeled by outcome (ok or error).",
		}, []string{"status"}),
		RESTRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minutelake_rest_retries_total",
			Help: "Total number of REST retry attempts.",
		}),
	}

	prometheus.MustRegister(
		r.PartitionsCommittedTotal,
		r.HoursFailedTotal,
		r.WatermarkLagSeconds,
		r.VisionRequestsTotal,
		r.RESTRequestsTotal,
		r.RESTRetriesTotal,
	)
	return r
}

// Handler exposes the registered metrics in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
