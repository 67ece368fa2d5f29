package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "license_registry"

var (
	Registry = prometheus.NewRegistry()

	// StoreLookupDuration observes every single-predicate store read.
	StoreLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "lookup_duration_seconds",
			Help:      "Latency of single-predicate store lookups.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"kind", "table", "outcome"},
	)

	// LookupFanout records how many store reads one composite query issued.
	LookupFanout = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "lookup_fanout",
			Help:      "Store lookups issued per composite asset query.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"operation"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		StoreLookupDuration,
		LookupFanout,
		HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
