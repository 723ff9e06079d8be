// Package metrics holds the Prometheus collectors shared by the poller,
// the dispatcher and the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gagwatch"

// Cycle results.
const (
	CycleOK          = "ok"
	CycleFetchFailed = "fetch_failed"
)

var (
	PollCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycles_total",
			Help:      "Completed poll cycles by result",
		},
		[]string{"result"},
	)

	PollCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of poll cycles in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	PollCyclesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "cycles_skipped_total",
			Help:      "Ticks dropped because a cycle was still running",
		},
	)

	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "failures_total",
			Help:      "Failed upstream fetches by endpoint",
		},
		[]string{"endpoint"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Dispatched notifications by kind and status",
		},
		[]string{"kind", "status"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		PollCycles, PollCycleDuration, PollCyclesSkipped,
		FetchFailures, Notifications,
		HTTPRequests, HTTPRequestDuration,
	)
}
