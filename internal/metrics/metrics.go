// Package metrics provides Prometheus metrics for the gateway. All metrics
// use the "jobtrace" namespace and are registered with the default registry
// via promauto, so they are automatically scraped on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jobtrace"

var (
	// ReconcileCyclesTotal counts reconciliation poll cycles by outcome.
	// outcome: success | failed | skipped
	ReconcileCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "cycles_total",
			Help:      "Total number of reconciliation poll cycles by outcome.",
		},
		[]string{"outcome"},
	)

	// ReconcileCycleDuration observes wall-clock duration of completed cycles.
	ReconcileCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of reconciliation poll cycles.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// HubSubscribers tracks the current number of live hub subscribers.
	HubSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Current number of registered broadcast hub subscribers.",
		},
	)

	// HubDroppedMessagesTotal counts messages dropped because a subscriber's
	// buffer was full at publish time.
	HubDroppedMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "dropped_messages_total",
			Help:      "Total number of hub messages dropped for slow subscribers.",
		},
	)

	// CommandsTotal counts command runner invocations by outcome.
	// outcome: success | failure | timeout
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "total",
			Help:      "Total number of executed commands by outcome.",
		},
		[]string{"outcome"},
	)

	// UpstreamRequestDuration observes latency of upstream job list queries.
	UpstreamRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of upstream job source queries.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
