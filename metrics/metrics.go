// Package metrics exposes CSM and writer pipeline counters through two
// complementary surfaces the teacher's stack carries: rcrowley/go-metrics
// registries (used internally the way the teacher instruments storage and
// networking) and a prometheus/client_golang HTTP exposition endpoint for
// scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rmetrics "github.com/rcrowley/go-metrics"
)

var (
	// EventsApplied counts sync events the worker has successfully
	// applied, the rcrowley/go-metrics counter mirrored into the same
	// registry the teacher's storage layer reports into.
	EventsApplied = rmetrics.NewRegisteredCounter("csm/events_applied", rmetrics.DefaultRegistry)

	// BlocksFinalized counts L2 blocks moved past the finalization
	// horizon.
	BlocksFinalized = rmetrics.NewRegisteredCounter("csm/blocks_finalized", rmetrics.DefaultRegistry)

	// ForksRejected counts blocks evicted by a finalize_tip call.
	ForksRejected = rmetrics.NewRegisteredCounter("csm/forks_rejected", rmetrics.DefaultRegistry)

	promEventsApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "csmnode_events_applied_total",
		Help: "Number of sync events successfully applied by the CSM worker.",
	})
	promBlobStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "csmnode_blob_status",
		Help: "Count of blobs currently in each writer pipeline status.",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(promEventsApplied, promBlobStatus)
}

// RecordEventApplied bumps both the rcrowley counter (for in-process log
// sampling) and the Prometheus counter (for scraping).
func RecordEventApplied() {
	EventsApplied.Inc(1)
	promEventsApplied.Inc()
}

// SetBlobStatusCount reports how many blobs currently sit in status.
func SetBlobStatusCount(status string, count float64) {
	promBlobStatus.WithLabelValues(status).Set(count)
}

// Handler returns the HTTP handler Prometheus scrapes.
func Handler() http.Handler { return promhttp.Handler() }
