package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ETARequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eta_requests_total",
		Help: "ETA computations by answering provider and outcome (ok, fallback, unavailable, error)",
	}, []string{"provider", "outcome"})

	ETACacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eta_cache_lookups_total",
		Help: "ETA cache lookups by result (hit, miss, error)",
	}, []string{"result"})
)

var (
	RoutingBackendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routing_backend_failures_total",
		Help: "Routing backend calls that fell back to the Haversine estimate",
	}, []string{"provider", "reason"})

	RoutingBackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "routing_backend_request_seconds",
		Help:    "Latency of routing backend calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
	}, []string{"provider"})
)

var RouteOptimizations = promauto.NewCounter(prometheus.CounterOpts{
	Name: "route_optimizations_total",
	Help: "Nearest-neighbor route optimizations performed",
})
