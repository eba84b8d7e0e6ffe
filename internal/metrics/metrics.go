// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stylehub"

var (
	CheckoutSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "steps_total",
		Help:      "Checkout pipeline step outcomes.",
	}, []string{"step", "outcome"})

	CheckoutDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "duration_seconds",
		Help:      "End-to-end checkout latency by final state.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"state"})

	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Vendor API calls by gateway, operation and result.",
	}, []string{"gateway", "operation", "result"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Vendor API call latency.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"gateway", "operation"})

	CartWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "writes_total",
		Help:      "Remote cart writes by result (ok, conflict, error).",
	}, []string{"result"})

	AdminActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "admin",
		Name:      "actions_total",
		Help:      "Admin order mutations by action.",
	}, []string{"action"})
)

// ObserveGateway records one vendor call.
func ObserveGateway(gateway, operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	GatewayRequests.WithLabelValues(gateway, operation, result).Inc()
	GatewayLatency.WithLabelValues(gateway, operation).Observe(time.Since(start).Seconds())
}
