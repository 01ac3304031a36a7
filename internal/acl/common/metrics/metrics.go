package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Rebuild metrics
	RebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acl_rebuilds_total",
			Help: "Total number of cache rebuilds by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	RebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "acl_rebuild_duration_seconds",
			Help:    "Wall-clock duration of full cache rebuilds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Compiled structure metrics
	SourcePolicies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "acl_source_policies",
			Help: "Active policies considered by the last compile",
		},
	)

	ExpandedPolicies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "acl_expanded_policies",
			Help: "Policies surviving expansion in the last compile",
		},
	)

	TrackedAddresses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "acl_tracked_addresses",
			Help: "Distinct addresses in the compiled per-address mapping",
		},
	)

	GlobalEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "acl_global_entries",
			Help: "Patterns in the compiled global block set",
		},
	)
)

// Register registers all collectors with the default registry.
// Call once at startup.
func Register() {
	prometheus.MustRegister(
		RebuildsTotal,
		RebuildDuration,
		SourcePolicies,
		ExpandedPolicies,
		TrackedAddresses,
		GlobalEntries,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
