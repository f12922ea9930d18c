// Package metrics exports controller operation metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operations records latency and outcome of controller operations.
// A nil *Operations, or one built with a nil registerer, records nothing.
type Operations struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	drift    *prometheus.CounterVec
}

// NewOperations registers the operation metrics on the provided registerer.
func NewOperations(reg prometheus.Registerer) *Operations {
	if reg == nil {
		return &Operations{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopsync_operation_duration_seconds",
		Help:    "Duration of controller operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopsync_operation_success_total",
		Help: "Controller operations that completed.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopsync_operation_failure_total",
		Help: "Controller operations that left state unchanged because of an error.",
	}, []string{"operation"})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopsync_cart_drift_total",
		Help: "Reconciling re-fetches that found the local cart out of date.",
	}, []string{"operation"})
	reg.MustRegister(duration, success, failure, drift)
	return &Operations{
		duration: duration,
		success:  success,
		failure:  failure,
		drift:    drift,
	}
}

// Observe records one finished operation that started at start.
// err decides whether the success or the failure counter moves.
func (o *Operations) Observe(operation string, start time.Time, err error) {
	if o == nil || o.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	o.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		o.failure.WithLabelValues(op).Inc()
		return
	}
	o.success.WithLabelValues(op).Inc()
}

// IncDrift counts a re-fetch after operation that corrected the local view.
func (o *Operations) IncDrift(operation string) {
	if o == nil || o.drift == nil {
		return
	}
	o.drift.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
