// Package metrics defines and registers all custom Prometheus metrics for
// feedback-desk. It is the single source of truth for metric names, labels,
// and help strings. Metrics register with the default registry at import
// time via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feedbackdesk"

// UpstreamRequestsTotal counts calls to the upstream feedback service.
// Labels:
//   - operation: the logical operation (e.g. "login", "create_feedback")
//   - outcome: "success" or "error"
var UpstreamRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Total number of requests issued to the upstream feedback service.",
	},
	[]string{"operation", "outcome"},
)

// UpstreamRequestDuration measures upstream round-trip time per operation.
var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of upstream requests from send to decoded response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// SummaryMetricFailuresTotal counts individual dashboard summary metrics
// that failed to fetch and were defaulted to zero.
// Labels:
//   - role: "manager" or "employee"
//   - metric: the metric name (e.g. "ack-rate")
var SummaryMetricFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summary_metric_failures_total",
		Help:      "Total number of summary metric fetches that failed and were defaulted.",
	},
	[]string{"role", "metric"},
)

// StaleResponsesDiscardedTotal counts in-flight responses dropped because
// the session identity changed while the request was outstanding.
var StaleResponsesDiscardedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_discarded_total",
		Help:      "Total number of responses discarded by the stale-identity guard.",
	},
)

// RequestCompletionFailuresTotal counts feedback-request completions that
// failed after the primary feedback creation succeeded.
var RequestCompletionFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_completion_failures_total",
		Help:      "Total number of failed follow-up feedback_request completions.",
	},
)
