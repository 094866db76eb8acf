package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HttpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "perfumery",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perfumery",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	registerOnce sync.Once
)

// RegisterMetrics adds the HTTP collectors to the default registry. Routers
// built more than once (tests) share the same collectors.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HttpDuration, HttpRequests)
	})
}
