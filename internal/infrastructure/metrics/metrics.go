package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts API requests by method, route and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// TopologyRequestsTotal counts calls to the topology service by
	// operation and classified outcome.
	TopologyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_topology_requests_total",
			Help: "Total number of topology service calls.",
		},
		[]string{"operation", "outcome"},
	)
)

// Init registers the collectors with the default registry.
func Init() {
	prometheus.MustRegister(HTTPRequestsTotal, TopologyRequestsTotal)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
