// Package metrics exposes the conductor's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReconcilerTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stackmint_reconciler_ticks_total",
			Help: "Total number of reconciler ticks",
		},
	)

	ReconcilerTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stackmint_reconciler_tick_duration_seconds",
			Help:    "Duration of reconciler ticks",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconcilerSyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackmint_reconciler_syncs_total",
			Help: "Cluster status syncs applied by the reconciler, by outcome",
		},
		[]string{"outcome"},
	)

	HealthPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stackmint_health_polls_total",
			Help: "Monitor health polls by resulting status",
		},
		[]string{"status"},
	)

	ClusterUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stackmint_cluster_utilization_percent",
			Help: "Monitor-computed cluster utilization by cluster and metric",
		},
		[]string{"cluster", "metric"},
	)

	ClustersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stackmint_clusters_total",
			Help: "Clusters known to the control plane by status",
		},
		[]string{"status"},
	)
)

// Register adds all collectors to the default registry.
func Register() {
	prometheus.MustRegister(
		ReconcilerTicksTotal,
		ReconcilerTickDuration,
		ReconcilerSyncsTotal,
		HealthPollsTotal,
		ClusterUtilization,
		ClustersTotal,
	)
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
