package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch worker counters. Registered on the default registry; each
// process that imports this package serves them on its own /metrics
// endpoint via Handler.
var (
	JobsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "montafon_dispatch_jobs_processed_total",
		Help: "Identification email jobs completed successfully.",
	})

	JobsRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "montafon_dispatch_jobs_retried_total",
		Help: "Identification email jobs returned to the queue after a transport failure.",
	})

	JobsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "montafon_dispatch_jobs_dead_lettered_total",
		Help: "Identification email jobs parked after exhausting retries.",
	})

	JobsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "montafon_dispatch_jobs_skipped_total",
		Help: "Identification email jobs skipped because their record no longer exists.",
	})
)

// Handler serves the registered collectors in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
