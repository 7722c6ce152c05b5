package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Conversation sync attempts.",
	})
	SyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_failures_total",
		Help: "Conversation syncs dropped after exhausting retries.",
	})
	SyncSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_skipped_total",
		Help: "Syncs short-circuited because the snapshot was already current.",
	})
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_duration_seconds",
		Help:    "Wall time of one conversation sync.",
		Buckets: prometheus.DefBuckets,
	})
	BroadcastWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_writes_total",
		Help: "Full snapshot writes to the broadcast store.",
	})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
