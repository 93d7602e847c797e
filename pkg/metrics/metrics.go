package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docstore", Name: "operations_total", Help: "Collection operations by backend, collection, operation and outcome."},
		[]string{"backend", "collection", "operation", "outcome"},
	)
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "docstore", Name: "operation_duration_seconds", Help: "Collection operation latency by backend and operation.", Buckets: prometheus.DefBuckets},
		[]string{"backend", "operation"},
	)
	StoreFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docstore", Name: "fallbacks_total", Help: "Times the configured backend was replaced by the memory store."},
		[]string{"backend"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docstore", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docstore", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(StoreOperations)
	reg.MustRegister(StoreOperationDuration)
	reg.MustRegister(StoreFallbacks)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}

// ObserveOperation records one collection operation that started at start.
func ObserveOperation(backend, collection, operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StoreOperations.WithLabelValues(backend, collection, operation, outcome).Inc()
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}
