package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sync pass metrics
	SyncPassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_sync_passes_total",
			Help: "Total number of reconciliation passes by application and result",
		},
		[]string{"application", "result"},
	)

	SyncPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "steward_sync_pass_duration_seconds",
			Help:    "Reconciliation pass duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"application"},
	)

	SyncOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_sync_operations_total",
			Help: "Total number of apply operations by type and result",
		},
		[]string{"operation", "result"},
	)

	// Application state metrics
	ApplicationHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "steward_application_health",
			Help: "Application health (0 = healthy, 1 = progressing, 2 = degraded, 3 = missing)",
		},
		[]string{"application"},
	)

	ApplicationOrphans = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "steward_application_orphans",
			Help: "Number of live managed resources no longer desired",
		},
		[]string{"application"},
	)

	// Controller metrics
	QueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_queue_length",
			Help: "Number of applications waiting for reconciliation",
		},
	)

	TriggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_triggers_total",
			Help: "Total number of reconciliation triggers by reason",
		},
		[]string{"reason"},
	)

	RenderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_render_errors_total",
			Help: "Total number of manifest documents that failed to render",
		},
		[]string{"application"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(SyncPassesTotal)
	prometheus.MustRegister(SyncPassDuration)
	prometheus.MustRegister(SyncOperationsTotal)
	prometheus.MustRegister(ApplicationHealth)
	prometheus.MustRegister(ApplicationOrphans)
	prometheus.MustRegister(QueueLength)
	prometheus.MustRegister(TriggersTotal)
	prometheus.MustRegister(RenderErrorsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// HealthValue maps a health status string to its gauge value.
func HealthValue(status string) float64 {
	switch status {
	case "Healthy":
		return 0
	case "Progressing":
		return 1
	case "Degraded":
		return 2
	case "Missing":
		return 3
	default:
		return -1
	}
}
