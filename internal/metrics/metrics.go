// Package metrics exposes Prometheus instrumentation for a rendezvous node:
// call and failure counters per store operation, plus a request counter and
// a latency histogram per HTTP route, scraped through the standard promhttp
// handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every metric a node emits. Fields are exported collectors
// rather than wrapped accessor methods because that's how callers in this
// codebase already use the client_golang API directly.
type Registry struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StoreOpsTotal   *prometheus.CounterVec
	StoreOpErrors   *prometheus.CounterVec
}

// NewRegistry creates and registers all collectors against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rendezvous_http_requests_total",
			Help: "Total HTTP requests handled, by route and status class.",
		}, []string{"route", "method", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rendezvous_http_request_duration_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),

		StoreOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rendezvous_store_ops_total",
			Help: "Store operations handled, by kind (set/get/add/check/wait/multiget/multiset).",
		}, []string{"op"}),

		StoreOpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rendezvous_store_op_errors_total",
			Help: "Store operation failures, by kind.",
		}, []string{"op"}),
	}
}

// ObserveOp records one attempt of a store operation and, if err is
// non-nil, also records it as a failure.
func (r *Registry) ObserveOp(op string, err error) {
	r.StoreOpsTotal.WithLabelValues(op).Inc()
	if err != nil {
		r.StoreOpErrors.WithLabelValues(op).Inc()
	}
}
